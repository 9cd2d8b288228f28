package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentRecurrence})
	applog.SetDefault(logger)

	slog.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	engine := services.NewRecurrenceEngine(repo, cfg.RecurrenceHorizonMonths, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Recurring expansion configured",
		"interval", cfg.RecurringProcessorInterval,
		"horizon_months", cfg.RecurrenceHorizonMonths,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run one pass at startup, then on the ticker.
	runExpansion(ctx, engine)

	ticker := time.NewTicker(cfg.RecurringProcessorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutdown complete")
			return
		case <-ticker.C:
			runExpansion(ctx, engine)
		}
	}
}

func runExpansion(ctx context.Context, engine *services.RecurrenceEngine) {
	created, err := engine.ExpandAll(ctx)
	if err != nil {
		slog.Error("Expansion pass failed", "error", err)
		return
	}
	slog.Info("Expansion pass complete", "occurrences_created", created)
}
