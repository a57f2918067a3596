// Package cli provides common CLI initialization utilities shared by
// cmd/paytrack, cmd/mock-api and cmd/paytrack-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paytrack/internal/amqp"
	"paytrack/internal/backend"
	"paytrack/internal/config"
	"paytrack/internal/export"
	applog "paytrack/internal/log"
	"paytrack/internal/notify"
	"paytrack/internal/storage"
)

// SetupLogger initializes structured logging at the LOG_LEVEL level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(out io.Writer) *applog.Logger {
	if out == nil {
		out = os.Stdout
	}
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Output = out
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.Format = "json"
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitPreferences opens the preference store at the given path.
// Returns the store or exits the process on failure.
func InitPreferences(logger *applog.Logger, dbPath string) *storage.PreferenceStore {
	prefs, err := storage.NewPreferenceStore(dbPath)
	if err != nil {
		logger.Error("Failed to initialize preference store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return prefs
}

// InitBackend creates the API gateway selected by cfg.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, bcfg)
}

// InitNotifier builds the notification fan-out: the terminal (when out is
// set), the structured log, and the AMQP broker when configured. A broker
// that cannot be reached is logged and skipped. The returned cleanup closes
// the broker connection.
func InitNotifier(logger *applog.Logger, cfg *config.Config, out io.Writer) (notify.Notifier, func() error) {
	targets := notify.Multi{notify.NewLogNotifier(logger)}
	if out != nil {
		targets = append(targets, notify.NewWriterNotifier(out))
	}

	cleanup := func() error { return nil }
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without broker notifications", "error", err)
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			targets = append(targets, notify.NewAMQPNotifier(client))
			cleanup = client.Close
		}
	}
	return targets, cleanup
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal prints err to stderr and exits with status 1.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// SheetsConfig maps the Google settings onto the exporter configuration,
// reading the OAuth client file when one is configured.
func SheetsConfig(cfg *config.Config) (export.SheetsConfig, error) {
	sc := export.SheetsConfig{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}
	if !cfg.GoogleOAuthEnabled() {
		return sc, nil
	}
	sc.OAuthClientJSON = cfg.GoogleOAuthClientJSON
	sc.OAuthTokenFile = cfg.GoogleOAuthTokenFile
	if sc.OAuthClientJSON == "" {
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return export.SheetsConfig{}, fmt.Errorf("read oauth client file: %w", err)
		}
		sc.OAuthClientJSON = string(b)
	}
	return sc, nil
}
