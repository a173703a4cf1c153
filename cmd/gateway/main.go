package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loansphere/internal/adapters/http/middleware"
	"loansphere/internal/config"
	"loansphere/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
)

// The gateway is a thin reverse proxy: it forwards /api/user/* to the user
// service and /api/loan/* to the loan service. Authentication stays with the
// services themselves so tokens are verified next to the data they guard.

func main() {
	// Load configuration
	cfg, err := config.Load("gateway")
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LoanSphere Gateway v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	started := time.Now()
	app.Get("/health", func(c *fiber.Ctx) error {
		return response.Success(c, "Gateway is healthy", fiber.Map{
			"service": cfg.Service,
			"uptime":  time.Since(started).String(),
		})
	})

	app.All("/api/user/*", forward(cfg.Gateway.UserServiceURL))
	app.All("/api/loan/*", forward(cfg.Gateway.LoanServiceURL))

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Gateway starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	log.Printf("   ↳ user service: %s", cfg.Gateway.UserServiceURL)
	log.Printf("   ↳ loan service: %s", cfg.Gateway.LoanServiceURL)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// forward proxies the request to the upstream service, preserving the full
// original path and query string.
func forward(upstream string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target := upstream + c.OriginalURL()
		if err := proxy.Do(c, target); err != nil {
			return response.ServiceUnavailable(c, "Upstream service unavailable")
		}
		// Strip the upstream's Server header so the gateway speaks with one voice.
		c.Response().Header.Del(fiber.HeaderServer)
		return nil
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down gateway...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Gateway stopped gracefully")
}
