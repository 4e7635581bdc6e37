package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"takziv/internal/amqp"
	"takziv/internal/budget"
	"takziv/internal/classify"
	"takziv/internal/config"
	apphttp "takziv/internal/http"
	applog "takziv/internal/log"
	"takziv/internal/services"
	"takziv/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Classifier is optional; without an API key imports degrade to
	// cache hits plus the sentinel label.
	var classifier classify.Classifier
	if cfg.GeminiAPIKey != "" {
		gemini, err := classify.NewGeminiClassifier(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Failed to initialize Gemini classifier, continuing without it", "error", err)
		} else {
			classifier = gemini
			logger.Info("Gemini classifier initialized", "model", cfg.GeminiModel)
		}
	} else {
		logger.Info("No Gemini API key configured, classification runs in degraded mode")
	}
	categorizer := classify.NewCategorizer(repo, classifier)

	// AMQP is optional; without it imports run synchronously only.
	var (
		amqpClient *amqp.Client
		publisher  services.ImportPublisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, async imports disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized, async imports enabled")
		}
	} else {
		logger.Info("AMQP disabled, imports run synchronously")
	}

	imports := services.NewImportService(repo, categorizer, publisher, cfg.ImportDir)
	engine := budget.NewEngine(repo)

	srv := apphttp.NewServer(":"+cfg.Port, repo, imports, engine, logger)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting takziv server", "port", cfg.Port)
	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
