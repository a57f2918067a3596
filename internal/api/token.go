package api

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider supplies a bearer token. An empty token means none is
// available and the client falls back to its static token.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken always yields the same token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// OAuth2TokenProvider adapts an identity client's token source. Refresh is
// handled by the token source.
func OAuth2TokenProvider(ts oauth2.TokenSource) TokenProvider {
	return func(context.Context) (string, error) {
		if ts == nil {
			return "", nil
		}
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("obtain oauth2 token: %w", err)
		}
		if !tok.Valid() {
			return "", nil
		}
		return tok.AccessToken, nil
	}
}
