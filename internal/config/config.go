package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend modes.
const (
	BackendRemote = "remote"
	BackendMock   = "mock"
)

type Config struct {
	// API gateway
	APIURL         string
	Backend        string
	APIToken       string
	RequestTimeout time.Duration
	RetryMutations bool

	// Retry/backoff
	RetryAttempts   int
	RetryDelay      time.Duration
	RetryMultiplier float64
	RetryMaxDelay   time.Duration

	// OAuth2 identity client (optional)
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthScopes       []string
	OAuthTokenFile    string

	// Preferences
	PrefsDBPath string

	// Mock backend / mock server
	MockDataDir   string
	MockPort      string
	MockRateLimit int

	// AMQP notifications (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheets mirror worker
	SyncInterval time.Duration
	SyncPageSize int

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		APIURL:         getEnv("PAYTRACK_API_URL", "http://localhost:8080/api"),
		Backend:        strings.ToLower(getEnv("PAYTRACK_BACKEND", BackendRemote)),
		APIToken:       getEnv("PAYTRACK_API_TOKEN", ""),
		RequestTimeout: getEnvDuration("PAYTRACK_REQUEST_TIMEOUT", 30*time.Second),
		RetryMutations: getEnvBool("PAYTRACK_RETRY_MUTATIONS", false),

		RetryAttempts:   getEnvInt("PAYTRACK_RETRY_ATTEMPTS", 3),
		RetryDelay:      getEnvDuration("PAYTRACK_RETRY_DELAY", time.Second),
		RetryMultiplier: getEnvFloat("PAYTRACK_RETRY_MULTIPLIER", 2),
		RetryMaxDelay:   getEnvDuration("PAYTRACK_RETRY_MAX_DELAY", 30*time.Second),

		OAuthClientID:     getEnv("PAYTRACK_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("PAYTRACK_OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("PAYTRACK_OAUTH_AUTH_URL", ""),
		OAuthTokenURL:     getEnv("PAYTRACK_OAUTH_TOKEN_URL", ""),
		OAuthScopes:       getEnvList("PAYTRACK_OAUTH_SCOPES"),
		OAuthTokenFile:    getEnv("PAYTRACK_OAUTH_TOKEN_FILE", ""),

		PrefsDBPath: getEnv("PAYTRACK_PREFS_DB", "./data/paytrack.db"),

		MockDataDir:   getEnv("PAYTRACK_MOCK_DATA_DIR", "data"),
		MockPort:      getEnv("PAYTRACK_MOCK_PORT", "8080"),
		MockRateLimit: getEnvInt("PAYTRACK_MOCK_RATE_LIMIT", 600),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "paytrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncPageSize: getEnvInt("SYNC_PAGE_SIZE", 100),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Payments"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// OAuthEnabled reports whether an identity client is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthTokenURL != ""
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// GoogleOAuthEnabled reports whether Sheets should use user credentials.
func (c *Config) GoogleOAuthEnabled() bool {
	return (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "") && c.GoogleOAuthTokenFile != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate backend
	switch c.Backend {
	case BackendRemote, BackendMock:
	default:
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of [%s %s]", c.Backend, BackendRemote, BackendMock))
	}

	// Validate API URL (always: mock mode uses its path as the route prefix)
	if parsedURL, err := url.Parse(c.APIURL); err != nil || c.APIURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s'", c.APIURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIURL))
	}

	// Validate timeout
	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	} else if c.RequestTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at most 10 minutes", c.RequestTimeout))
	}

	// Validate retry policy
	if c.RetryAttempts < 1 || c.RetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be between 1 and 10", c.RetryAttempts))
	}
	if c.RetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry delay %v: must not be negative", c.RetryDelay))
	}
	if c.RetryMultiplier < 1 {
		errors = append(errors, fmt.Sprintf("invalid retry multiplier %g: must be at least 1", c.RetryMultiplier))
	}
	if c.RetryMaxDelay < c.RetryDelay {
		errors = append(errors, fmt.Sprintf("invalid retry max delay %v: must be at least the retry delay %v", c.RetryMaxDelay, c.RetryDelay))
	}

	// Validate OAuth configuration if partially provided
	if c.OAuthClientID != "" || c.OAuthTokenURL != "" {
		if !c.OAuthEnabled() {
			errors = append(errors, "PAYTRACK_OAUTH_CLIENT_ID and PAYTRACK_OAUTH_TOKEN_URL must be set together")
		} else if u, err := url.Parse(c.OAuthTokenURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid OAuth token URL '%s'", c.OAuthTokenURL))
		}
	}

	// Validate preferences database directory
	if c.PrefsDBPath == "" {
		errors = append(errors, "preferences database path cannot be empty")
	} else if c.PrefsDBPath != ":memory:" {
		dir := filepath.Dir(c.PrefsDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create preferences database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate mock server port
	if port, err := strconv.Atoi(c.MockPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid mock port '%s': must be a number", c.MockPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid mock port %d: must be between 1 and 65535", port))
	}
	if c.MockRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid mock rate limit %d: must not be negative", c.MockRateLimit))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate worker settings
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1s", c.SyncInterval))
	}
	if c.SyncPageSize < 1 || c.SyncPageSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync page size %d: must be between 1 and 1000", c.SyncPageSize))
	}

	// Validate Google Sheets export if configured
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && !c.GoogleOAuthEnabled() {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if c.GoogleOAuthClientFile != "" {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma or space separated value.
func getEnvList(key string) []string {
	return strings.FieldsFunc(os.Getenv(key), func(r rune) bool {
		return r == ',' || r == ' '
	})
}
