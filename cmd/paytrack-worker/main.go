package main

import (
	"context"
	"errors"
	"os"
	"time"

	"paytrack/internal/amqp"
	"paytrack/internal/cli"
	"paytrack/internal/export"
	applog "paytrack/internal/log"
	"paytrack/internal/notify"
	"paytrack/internal/query"
	"paytrack/internal/services"
	"paytrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout)
	logger.Info("Starting paytrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	// Reads go straight to the gateway, so the cache never serves the mirror.
	cache := query.NewClient(query.DefaultConfig())
	cache.Start()
	defer cache.Close()
	svc := services.NewPaymentService(res.Client, cache, nil, logger)

	// Initialize the Google Sheets mirror (optional)
	var mirror worker.Mirror
	if cfg.SheetsEnabled() {
		sc, err := cli.SheetsConfig(cfg)
		if err == nil {
			var exp *export.SheetsExporter
			if exp, err = export.NewSheetsExporter(ctx, sc); err == nil {
				mirror = exp
			}
		}
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	// Consumed notifications are only logged here; the client that
	// published them already showed them to its user.
	relay := notify.NewLogNotifier(logger.WithComponent(applog.ComponentNotify))
	syncWorker := worker.NewSyncWorker(svc, mirror, relay, cfg.SyncPageSize)

	if mirror != nil {
		logger.Info("Performing startup sync")
		if err := syncWorker.Sync(ctx); err != nil {
			logger.Error("Startup sync failed", "error", err)
		}
	}

	go func() {
		err := amqpClient.ConsumeNotifications(ctx, func(msg *amqp.NotificationMessage) error {
			return syncWorker.HandleNotification(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	// Retry syncs that failed after a mutation.
	if mirror != nil {
		go func() {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := syncWorker.SyncIfPending(ctx); err != nil {
						logger.Error("Periodic sync failed", "error", err)
					}
				}
			}
		}()
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		cancel()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	})

	select {
	case <-shutdownCtx.Done():
		<-done
	case <-ctx.Done():
		logger.Info("Context cancelled")
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
	logger.Info("Worker stopped", "last_sync", syncWorker.LastSync())
}
