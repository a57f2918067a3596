package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthConfig describes the identity client that issues API tokens.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// TokenFile holds a token saved by the authorization-code flow. When
	// empty the client-credentials grant is used instead.
	TokenFile string
}

// OAuth2 returns the authorization-code configuration.
func (c OAuthConfig) OAuth2(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      c.Scopes,
	}
}

// NewOAuth2TokenSource builds a refreshing token source. A saved token is
// refreshed through the authorization-code config; otherwise the client
// credentials grant is used.
func NewOAuth2TokenSource(ctx context.Context, c OAuthConfig) (oauth2.TokenSource, error) {
	if c.ClientID == "" || c.TokenURL == "" {
		return nil, errors.New("oauth2: client id and token url are required")
	}
	if c.TokenFile != "" {
		tok, err := LoadToken(c.TokenFile)
		if err != nil {
			return nil, err
		}
		return c.OAuth2("").TokenSource(ctx, tok), nil
	}
	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	return cc.TokenSource(ctx), nil
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
