package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/calendar"
	calgoogle "fintrack/internal/calendar/google"
	calmemory "fintrack/internal/calendar/memory"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	slog.Info("Starting fintrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL must be set for the calendar sync worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := newEventWriter(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize calendar backend", "error", err, "backend", cfg.CalendarBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	calendarWorker := worker.NewCalendarWorker(repo, writer)

	slog.Info("Calendar sync worker running",
		"backend", cfg.CalendarBackend,
		"queue", cfg.AMQPQueue)

	err = amqpClient.ConsumeCalendarSync(ctx, func(msg *amqp.CalendarSyncMessage) error {
		return calendarWorker.HandleMessage(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func newEventWriter(ctx context.Context, cfg *config.Config) (calendar.EventWriter, error) {
	switch cfg.CalendarBackend {
	case "google":
		return calgoogle.NewClient(ctx, calgoogle.Options{
			CalendarID: cfg.GoogleCalendarID,
			ClientJSON: cfg.GoogleOAuthClientJSON,
			ClientFile: cfg.GoogleOAuthClientFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
		})
	default:
		// "memory" and unset both run without external calls.
		return calmemory.New(), nil
	}
}
