package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"loansphere/internal/adapters/http/middleware"
	"loansphere/internal/adapters/http/routes"
	"loansphere/internal/adapters/persistence/models"
	"loansphere/internal/config"
	"loansphere/internal/eventbus"

	"github.com/gofiber/fiber/v2"
)

// @title LoanSphere Loan Service API
// @version 1.0
// @description Loan requests, tiered pricing and approval workflow for LoanSphere

// @contact.name API Support
// @contact.email support@loansphere.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/loan

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load("loan-service")
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.Service)

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase(db)

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrateLoanService(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Event bus (fail fast if the configured broker is unreachable)
	bus, err := eventbus.New(cfg.EventBus.Type, cfg.EventBus.URL, logger)
	if err != nil {
		log.Fatalf("❌ Failed to connect event bus: %v", err)
	}
	log.Printf("✅ Event bus ready [%s]", cfg.EventBus.Type)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LoanSphere Loan Service v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes and event subscriptions
	routes.SetupLoanService(app, db, cfg, bus, logger)

	// Deliver broker messages until shutdown
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	go func() {
		if err := bus.Consume(consumeCtx); err != nil {
			logger.Error("event consumer stopped", "error", err)
		}
	}()

	// Graceful shutdown
	go gracefulShutdown(app, stopConsume)

	// Start server
	log.Printf("🚀 Loan service starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, stopConsume context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down loan service...")
	stopConsume()
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Loan service stopped gracefully")
}
