package backend

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, h http.HandlerFunc) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://mock.local/api/health", nil)
	require.NoError(t, err)
	resp, err := NewInProcessClient(h).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestInProcessResponseCapturesHandlerOutput(t *testing.T) {
	resp, body := roundTrip(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.RequestURI)
		assert.Equal(t, "127.0.0.1:0", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Header().Set("X-Late", "ignored")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "201 Created", resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("X-Late"))
	assert.Equal(t, int64(len(body)), resp.ContentLength)
	assert.Equal(t, `{"status":"ok"}`, body)
}

func TestInProcessResponseDefaults(t *testing.T) {
	resp, body := roundTrip(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), resp.ContentLength)
	assert.Empty(t, body)

	resp, _ = roundTrip(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain")
		w.WriteHeader(http.StatusTeapot)
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "first write fixes the status")
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
}
