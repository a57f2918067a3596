package backend

import (
	"fmt"
	"net/url"

	"paytrack/internal/api"
	"paytrack/internal/config"
	"paytrack/internal/retry"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.Backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	cfg := Config{
		Type: backendType,

		BaseURL: appConfig.APIURL,
		Token:   appConfig.APIToken,
		Timeout: appConfig.RequestTimeout,
		Retry: retry.Config{
			MaxAttempts:       appConfig.RetryAttempts,
			Delay:             appConfig.RetryDelay,
			BackoffMultiplier: appConfig.RetryMultiplier,
			MaxDelay:          appConfig.RetryMaxDelay,
		},
		RetryMutations: appConfig.RetryMutations,

		DataDirectory: appConfig.MockDataDir,
	}

	if appConfig.OAuthEnabled() {
		cfg.OAuth = &api.OAuthConfig{
			ClientID:     appConfig.OAuthClientID,
			ClientSecret: appConfig.OAuthClientSecret,
			AuthURL:      appConfig.OAuthAuthURL,
			TokenURL:     appConfig.OAuthTokenURL,
			Scopes:       appConfig.OAuthScopes,
			TokenFile:    appConfig.OAuthTokenFile,
		}
	}

	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("base URL must be an http(s) URL, got %q", c.BaseURL)
	}

	switch c.Type {
	case RemoteBackend:
		if u.Host == "" {
			return fmt.Errorf("base URL host is required for remote backend")
		}
		if c.OAuth != nil && (c.OAuth.ClientID == "" || c.OAuth.TokenURL == "") {
			return fmt.Errorf("OAuth client id and token URL are required when OAuth is configured")
		}

	case MockBackend:
		// DataDirectory defaults to "data"; missing seed files fall back to defaults
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, MockBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
