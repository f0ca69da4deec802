package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/api"
	"github.com/pharmaguard-pgx-server/internal/config"
	"github.com/pharmaguard-pgx-server/internal/domain"
	"github.com/pharmaguard-pgx-server/internal/history"
	"github.com/pharmaguard-pgx-server/internal/service"
	"github.com/pharmaguard-pgx-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to open analysis history store: %v", err)
	}
	defer store.Close()

	groqClient := external.NewGroqClient(external.GroqConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		RateLimit:   cfg.LLM.RateLimit,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	explainer, err := service.NewExplainerService(groqClient, cfg.Cache, cfg.LLM, logger)
	if err != nil {
		logger.Fatalf("Failed to create explainer: %v", err)
	}
	defer explainer.Close()

	analyzer := service.NewAnalyzerService(
		service.NewIngestorService(logger),
		service.NewRiskEngineService(logger),
		explainer,
		service.NewInteractionService(logger),
		logger,
	)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting PharmaGuard PGx server")

	server := api.NewServer(cfg, analyzer, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// newLogger builds the application logger from config
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// newStore opens the configured analysis history backend
func newStore(cfg domain.DatabaseConfig) (history.Store, error) {
	if cfg.Driver == "postgres" {
		return history.NewPostgresStoreFromURL(cfg.URL)
	}
	return history.NewSQLiteStore(cfg.Path)
}
