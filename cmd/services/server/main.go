package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/metrics"
	"github.com/soltixdb/brutlag/internal/queue"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/router"
	"github.com/soltixdb/brutlag/internal/services"
	"github.com/soltixdb/brutlag/internal/subscriber"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Brutlag service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create data directories", "error", err)
	}

	// Open report storage
	store, err := reports.Open(cfg.Reports, logger)
	if err != nil {
		logger.Fatal("Failed to open report store", "backend", cfg.Reports.Backend, "error", err)
	}
	defer func() { _ = store.Close() }()
	logger.Info("Report store ready",
		"backend", cfg.Reports.Backend, "data_dir", cfg.Reports.DataDir, "compression", cfg.Reports.Compression)

	// Connect to the event queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = publisher.Close() }()
	if cfg.PublishingEnabled() {
		logger.Info("Anomaly events will be published", "subject", cfg.Queue.Subject)
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	service := services.NewAnalysisService(logger, cfg, store, publisher, m)
	app := router.New(logger, service, m, cfg)

	// Consume queued analysis requests alongside the HTTP API
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.WorkerEnabled() {
		sub, err := subscriber.NewSubscriber(cfg.Queue, subscriber.Config{ConsumerGroup: cfg.Queue.ConsumerGroup}, logger)
		if err != nil {
			logger.Fatal("Failed to create request subscriber", "error", err)
		}
		worker := services.NewRequestWorker(logger, service, sub, cfg.Queue.RequestSubject)
		if err := worker.Start(workerCtx); err != nil {
			logger.Fatal("Failed to start request worker", "subject", cfg.Queue.RequestSubject, "error", err)
		}
		defer func() { _ = worker.Close() }()
	}

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	stopWorker()

	logger.Info("Server exited")
}
