package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"paytrack/internal/api"
	apphttp "paytrack/internal/http"
	applog "paytrack/internal/log"
	"paytrack/internal/mockapi"
	"paytrack/internal/retry"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(ctx, config)
	case MockBackend:
		return f.createMockBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) clientOptions(config Config) []api.Option {
	retryCfg := config.Retry
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}
	return []api.Option{
		api.WithLogger(f.logger),
		api.WithTimeout(config.Timeout),
		api.WithRetrier(retry.New(retryCfg, retry.WithLogger(f.logger))),
		api.WithRetryMutations(config.RetryMutations),
	}
}

func (f *DefaultFactory) createRemoteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts := f.clientOptions(config)

	switch {
	case config.TokenProvider != nil:
		opts = append(opts, api.WithTokenProvider(config.TokenProvider))
	case config.OAuth != nil:
		ts, err := api.NewOAuth2TokenSource(ctx, *config.OAuth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OAuth2 token source: %w", err)
		}
		opts = append(opts, api.WithTokenProvider(api.OAuth2TokenProvider(ts)))
	}

	client, err := api.NewClient(config.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	client.SetToken(config.Token)

	f.logger.Info("Initialized remote backend",
		"base_url", config.BaseURL,
		"oauth_enabled", config.OAuth != nil,
		"retry_mutations", config.RetryMutations)

	return &BackendResult{
		Client:  client,
		Cleanup: nil, // No cleanup needed for remote backend
	}, nil
}

func (f *DefaultFactory) createMockBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	store := mockapi.NewFromFiles(dataDir)
	logger := applog.New(applog.Config{Handler: f.logger.Handler(), Component: applog.ComponentMock})
	handler := apphttp.NewHandler(store, logger, u.Path)

	opts := append(f.clientOptions(config), api.WithHTTPClient(NewInProcessClient(handler)))
	if config.TokenProvider != nil {
		opts = append(opts, api.WithTokenProvider(config.TokenProvider))
	}
	client, err := api.NewClient(config.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	client.SetToken(config.Token)

	f.logger.Info("Initialized mock backend", "data_directory", dataDir, "base_path", u.Path)

	return &BackendResult{
		Client:  client,
		Cleanup: nil, // No cleanup needed for mock backend
	}, nil
}
