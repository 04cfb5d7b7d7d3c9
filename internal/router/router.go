package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/handlers"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/metrics"
	"github.com/soltixdb/brutlag/internal/middleware"
	"github.com/soltixdb/brutlag/internal/services"
)

// Setup configures all routes and middlewares. m may be nil when metrics are disabled.
func Setup(app *fiber.App, logger *logging.Logger, service *services.AnalysisService, m *metrics.Metrics, cfg *config.Config) *handlers.Handler {
	h := handlers.New(logger, service)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
		ExposeHeaders: "Location,X-Request-ID",
	}))

	skip := logging.DefaultMiddlewareConfig()
	if m != nil && cfg.Metrics.Enabled {
		skip.SkipPaths = append(skip.SkipPaths, cfg.Metrics.Path)
		app.Use(m.Middleware())
	}
	app.Use(logging.FiberMiddleware(logger, skip))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if m != nil && cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, m.Handler())
	}

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth))

	// Analysis
	v1.Post("/detect", h.Detect)
	v1.Post("/analyze", h.Analyze)
	v1.Post("/decompose", h.Decompose)
	v1.Post("/forecast", h.Forecast)

	// Stored reports
	v1.Get("/reports", h.ListReports)
	v1.Get("/reports/:id", h.GetReport)
	v1.Get("/reports/:id/export", h.ExportReport)
	v1.Get("/series/:name/anomalies", h.SeriesAnomalies)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, service *services.AnalysisService, m *metrics.Metrics, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Brutlag",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, service, m, cfg)

	return app
}
