package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lavanderia/internal/amqp"
	"lavanderia/internal/cache"
	"lavanderia/internal/config"
	"lavanderia/internal/core"
	applog "lavanderia/internal/log"
	"lavanderia/internal/services"
	"lavanderia/internal/storage"
)

// sweep materializes due recurring transactions for every user that has an
// active definition. Failures are logged per user so one broken account does
// not starve the rest.
func sweep(ctx context.Context, logger *applog.Logger, repo *storage.Repository, recurrence *services.RecurrenceService, now time.Time) {
	userIDs, err := repo.ListUserIDsWithActiveDefinitions(ctx)
	if err != nil {
		logger.Error("Failed to list users with active definitions", "error", err)
		return
	}

	total := 0
	for _, userID := range userIDs {
		result, err := recurrence.GenerateForMonth(ctx, userID, now)
		if err != nil {
			logger.Error("Generation failed for user", "error", err, "user_id", userID)
			continue
		}
		total += result.Criadas
	}
	logger.Info("Sweep complete", "users", len(userIDs), "transactions_created", total)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentRecurring, slog.LevelInfo)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The API consumes no events from this binary; the AMQP client is only
	// here so generated transactions reach the report worker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - generated transactions will not be exported")
	}

	summaries := cache.NewLRUCache[core.MonthSummary](64, 5*time.Minute)
	ledger := services.NewLedgerService(repo, amqpClient, summaries)
	recurrence := services.NewRecurrenceService(repo, ledger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Run once on startup so a restart never delays a due transaction by a
	// full interval.
	sweep(ctx, logger, repo, recurrence, time.Now())

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping recurring-worker")
			return
		case now := <-ticker.C:
			sweep(ctx, logger, repo, recurrence, now)
		}
	}
}
