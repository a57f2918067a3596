package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"paytrack/internal/cli"
	apphttp "paytrack/internal/http"
	applog "paytrack/internal/log"
	"paytrack/internal/mockapi"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout).WithComponent(applog.ComponentMock)
	cfg := cli.LoadAndValidateConfig(logger)

	// Serve under the same path prefix clients are configured with.
	basePath := "/api"
	if u, err := url.Parse(cfg.APIURL); err == nil && u.Path != "" {
		basePath = u.Path
	}

	store := mockapi.NewFromFiles(cfg.MockDataDir)
	logger.Info("Initialized mock store", "data_dir", cfg.MockDataDir)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.MockPort,
		BasePath:          basePath,
		RequestsPerMinute: cfg.MockRateLimit,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}, store, logger)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		m := srv.Metrics()
		logger.Info("Request totals", "requests", m.TotalRequests, "failed", m.FailedRequests)
	})

	logger.Info("Starting mock API server",
		"port", cfg.MockPort,
		"base_path", basePath,
		"rate_limit", cfg.MockRateLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.MockPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
