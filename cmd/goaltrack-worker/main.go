package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"goaltrack/internal/amqp"
	"goaltrack/internal/config"
	"goaltrack/internal/export"
	gsheet "goaltrack/internal/export/google"
	mem "goaltrack/internal/export/memory"
	"goaltrack/internal/log"
	"goaltrack/internal/services"
	"goaltrack/internal/storage"
	"goaltrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting goaltrack-worker")

	// Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite repository to read pending completion reports
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Choose the report sink: Google Sheets when configured, otherwise an
	// in-process store useful for local runs.
	var appender export.ReportAppender
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.NewClient(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = sheetsClient
		logger.Info("Google Sheets report export initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = mem.New()
		logger.Info("Google Sheets disabled, completion reports stay in memory")
	}

	reportWorker := worker.NewReportWorker(sqliteRepo, appender, cfg.ReportBatchSize)

	// On startup, drain any reports left pending while the worker was down.
	logger.Info("Performing startup report check...")
	if err := reportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup report check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	// Periodic polling backs up the AMQP fast path; with both running a lost
	// message delays an export instead of dropping it.
	processor := services.NewReportProcessor(sqliteRepo, appender, services.ReportProcessorConfig{
		PollInterval: cfg.ReportInterval,
		BatchSize:    cfg.ReportBatchSize,
		MaxRetries:   3,
	})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start report processor", "error", err)
		os.Exit(1)
	}

	// Initialize AMQP client for consuming completion events (optional)
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on polling only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeGoalCompleted(gctx, func(msg *amqp.GoalCompletedMessage) error {
				return reportWorker.HandleCompletedMessage(gctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		logger.Info("Consuming completion events", "queue", cfg.AMQPQueue)
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
	}

	// Graceful shutdown
	logger.Info("Shutting down worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Report processor shutdown", "error", err)
	}
	logger.Info("Worker shutdown complete")
}
