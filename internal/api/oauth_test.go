package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "abc", RefreshToken: "r1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}

	require.NoError(t, SaveToken(path, want))
	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewOAuth2TokenSourceRequiresClient(t *testing.T) {
	_, err := NewOAuth2TokenSource(context.Background(), OAuthConfig{TokenURL: "http://idp"})
	assert.Error(t, err)
}

func TestClientCredentialsTokenReachesRequests(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"cc-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer idp.Close()

	ts, err := NewOAuth2TokenSource(context.Background(), OAuthConfig{
		ClientID:     "paytrack",
		ClientSecret: "secret",
		TokenURL:     idp.URL,
	})
	require.NoError(t, err)

	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
	}), WithTokenProvider(OAuth2TokenProvider(ts)))

	_, err = c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer cc-token", auth)
}
