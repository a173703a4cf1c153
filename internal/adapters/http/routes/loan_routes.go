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

// SetupLoanService configures routes and event subscriptions for the loan
// service
func SetupLoanService(app *fiber.App, db *gorm.DB, cfg *config.Config, bus eventbus.Bus, logger *slog.Logger) {
	// Repositories
	loanRepo := repositories.NewLoanRepository(db)

	// Services
	loanService := services.NewLoanService(loanRepo, bus, logger)

	// Event subscriptions: the loan service tracks agent roster changes
	// announced by the user service.
	notifyService := services.NewNotificationService(logger)
	notifyService.RegisterLoanServiceSubscribers(bus)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.Service)
	loanHandler := handlers.NewLoanHandler(loanService)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api/loan")
	auth := middleware.AuthMiddleware(cfg)

	// Agent
	api.Get("/loans/quote", auth, middleware.AgentOnly(), loanHandler.Quote)
	api.Post("/loans", auth, middleware.AgentOnly(), loanHandler.Create)
	api.Put("/loans/:id", auth, middleware.AgentOnly(), loanHandler.Edit)

	// Admin & agent
	api.Get("/loans", auth, middleware.AdminOrAgent(), loanHandler.List)

	// Customer
	api.Get("/loans/my", auth, middleware.CustomerOnly(), loanHandler.ListMine)

	// Any authenticated role; customers are restricted to their own loans
	api.Get("/loans/:id", auth, loanHandler.GetByID)

	// Admin decision under row lock
	api.Put("/loans/:id/decision", auth, middleware.AdminOnly(), loanHandler.Decide)
}
