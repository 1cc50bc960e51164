package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/errx/errxfiber"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Initialize Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("🚀 Starting Lingua API Server...")

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	// 3. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 4. Create Fiber App with middleware and routes
	app := newApp(cfg.Server, container.DB, container.Metrics)
	container.IAM.RegisterRoutes(app)
	logx.Info("✓ IAM routes registered")

	// 5. 404 Handler
	app.Use(notFoundHandler)

	printRouteSummary()

	// 6. Background workers live until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	container.StartBackgroundServices(ctx)

	// 7. Start Server with Graceful Shutdown
	startServer(app, cfg.Server.Port)
	cancel()
}

// pinger is satisfied by *sqlx.DB.
type pinger interface {
	PingContext(ctx context.Context) error
}

// newApp builds the fiber app with global middleware and the operational
// endpoints. Module routes are mounted by the caller.
func newApp(cfg config.ServerConfig, db pinger, metrics *prometheus.Registry) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Lingua API",
		DisableStartupMessage: true,
		ErrorHandler:          errxfiber.ErrorHandler,
		BodyLimit:             1 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Get("/health", healthCheckHandler(db, cfg.Version))
	app.Get("/", infoHandler(cfg.Version))
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	}

	return app
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler reports degraded when the database does not answer.
func healthCheckHandler(db pinger, version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "lingua-api",
			"version": version,
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		if err := db.PingContext(ctx); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
			status = fiber.StatusServiceUnavailable
		} else {
			health["db"] = "healthy"
		}

		return c.Status(status).JSON(health)
	}
}

func infoHandler(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     "Lingua API",
			"version":     version,
			"description": "Authentication and session service",
			"endpoints": fiber.Map{
				"public":      "/api/public/*",
				"user":        "/v2/user/*",
				"invitations": "/v2/invitations/*",
				"health":      "/health",
				"metrics":     "/metrics",
			},
		})
	}
}

// notFoundHandler renders unknown routes with the regular error body.
func notFoundHandler(c *fiber.Ctx) error {
	id, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusNotFound).JSON(errx.Response{
		Code:      "not_found",
		Message:   fmt.Sprintf("%s %s does not exist", c.Method(), c.Path()),
		RequestID: id,
	})
}

// ============================================================================
// Lifecycle
// ============================================================================

func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Public: /api/public/*")
	logx.Info("   ├─ User: /v2/user/*, /v2/auth-provider/*")
	logx.Info("   ├─ Admin: /v2/administration/*")
	logx.Info("   ├─ Invitations: /v2/invitations/*")
	logx.Info("   └─ Ops: /health, /metrics")
}

// startServer blocks until the process receives SIGINT or SIGTERM.
func startServer(app *fiber.App, port int) {
	addr := fmt.Sprintf(":%d", port)

	go func() {
		logx.Info(strings.Repeat("=", 61))
		logx.Infof("🚀 Server listening on port %d", port)
		logx.Infof("💚 Health Check: http://localhost:%d/health", port)
		logx.Info(strings.Repeat("=", 61))

		if err := app.Listen(addr); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
