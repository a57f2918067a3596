package backend

import (
	"context"
	"time"

	"paytrack/internal/api"
	"paytrack/internal/retry"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the gateway and an optional cleanup function
type BackendResult struct {
	Client  *api.Client
	Cleanup CleanupFunc
}

// Factory creates API gateways based on configuration
type Factory interface {
	// CreateBackend creates a gateway for the configured backend
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for gateway creation
type Config struct {
	// Backend type
	Type BackendType

	// Gateway
	BaseURL        string
	Token          string
	TokenProvider  api.TokenProvider
	Timeout        time.Duration
	Retry          retry.Config
	RetryMutations bool

	// OAuth2 identity client (remote only, optional)
	OAuth *api.OAuthConfig

	// Mock backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	MockBackend   BackendType = "mock"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MockBackend:
		return true
	default:
		return false
	}
}
