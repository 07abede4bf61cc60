package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/analysis"
	"github.com/wtm-app/decoder-bot/internal/bot"
	"github.com/wtm-app/decoder-bot/internal/coach"
	"github.com/wtm-app/decoder-bot/internal/connectivity"
	"github.com/wtm-app/decoder-bot/internal/interpreter"
	"github.com/wtm-app/decoder-bot/internal/storage"
	"github.com/wtm-app/decoder-bot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Store
	switch cfg.Storage.Driver {
	case "memory":
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			DBName:   cfg.Storage.Postgres.DBName,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
		})
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Storage.Path))
		store, err = storage.NewSQLiteStore(cfg.Storage.Path)
	}
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connectivity probe
	monitor := connectivity.NewProbeMonitor(
		cfg.Connectivity.ProbeURL,
		time.Duration(cfg.Connectivity.ProbeIntervalSeconds)*time.Second,
		logger,
	)
	go monitor.Run(ctx)

	// Remote interpreter client
	interp := interpreter.NewOpenAIInterpreter(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second,
		logger,
	)

	// Orchestrator and its pending queue
	orch, err := analysis.NewOrchestrator(store, interp, monitor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize orchestrator", zap.Error(err))
	}
	go orch.Queue().Run(ctx)

	// Communication coach
	coachSvc := coach.New(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.Coach.MaxTokens,
		cfg.Coach.Temperature,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second,
		logger,
	)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, orch, coachSvc, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
