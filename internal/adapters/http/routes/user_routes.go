package routes

import (
	"log/slog"

	"loansphere/internal/adapters/http/handlers"
	"loansphere/internal/adapters/http/middleware"
	"loansphere/internal/adapters/persistence/repositories"
	"loansphere/internal/config"
	"loansphere/internal/core/services"
	"loansphere/internal/eventbus"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupUserService configures routes and event subscriptions for the user
// service
func SetupUserService(app *fiber.App, db *gorm.DB, cfg *config.Config, bus eventbus.Bus, logger *slog.Logger) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)

	// Services
	userService := services.NewUserService(userRepo, bus, logger)
	authService := services.NewAuthService(userRepo, cfg)

	// Event subscriptions: the user service listens to loan events so
	// customers can be notified about their loans.
	notifyService := services.NewNotificationService(logger)
	notifyService.RegisterUserServiceSubscribers(bus)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.Service)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api/user")
	auth := middleware.AuthMiddleware(cfg)

	// Public
	api.Post("/auth/login", authHandler.Login)
	api.Post("/users/signup", userHandler.Signup)

	// Authenticated
	api.Get("/users/me", auth, userHandler.Profile)

	// Admin
	api.Get("/users", auth, middleware.AdminOnly(), userHandler.List)
	api.Post("/users/admins", auth, middleware.AdminOnly(), userHandler.CreateAdmin)
	api.Get("/users/agents/pending", auth, middleware.AdminOnly(), userHandler.ListPendingAgents)
	api.Put("/users/agents/:id/approve", auth, middleware.AdminOnly(), userHandler.ApproveAgent)
	api.Delete("/users/agents/:id", auth, middleware.AdminOnly(), userHandler.DeleteAgent)
}
