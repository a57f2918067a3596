// Package api is the typed gateway to the expense tracker REST backend. Every
// call goes through the same pipeline: request coalescing for reads, retry
// with backoff for idempotent methods, and a per-attempt deadline.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"paytrack/internal/apierr"
	"paytrack/internal/dedup"
	"paytrack/internal/middleware/trace"
	"paytrack/internal/retry"
)

// Client talks to the backend over HTTP.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokenProvider  TokenProvider
	retrier        *retry.Retrier
	timeout        time.Duration
	flights        *dedup.Group
	logger         *slog.Logger
	retryMutations bool

	mu          sync.RWMutex
	staticToken string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (e.g. with an in-process transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenProvider sets the bearer credential source.
func WithTokenProvider(p TokenProvider) Option {
	return func(c *Client) { c.tokenProvider = p }
}

// WithRetrier replaces the default retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) {
		if r != nil {
			c.retrier = r
		}
	}
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDedup shares a coalescing group with other components.
func WithDedup(g *dedup.Group) Option {
	return func(c *Client) {
		if g != nil {
			c.flights = g
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryMutations enables retries for POST requests too. Off by default
// because a retried create can duplicate a record.
func WithRetryMutations(enabled bool) Option {
	return func(c *Client) { c.retryMutations = enabled }
}

// NewClient creates a gateway rooted at baseURL (e.g. http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		timeout:    retry.DefaultTimeout,
		flights:    dedup.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retrier == nil {
		c.retrier = retry.New(retry.DefaultConfig(), retry.WithLogger(c.logger))
	}
	return c, nil
}

// SetToken sets the fallback credential used when the provider yields nothing.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staticToken = token
}

// Flights exposes the coalescing group for introspection.
func (c *Client) Flights() *dedup.Group {
	return c.flights
}

func (c *Client) token(ctx context.Context) string {
	if c.tokenProvider != nil {
		tok, err := c.tokenProvider(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "Token provider failed, using static token", "error", err)
		} else if tok != "" {
			return tok
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staticToken
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

func (c *Client) retryable(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead:
		return true
	case http.MethodPost:
		return c.retryMutations
	default:
		return false
	}
}

// call runs one logical request through the pipeline and decodes the body
// into T. A nil result with a nil error means the response had no content.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*T, error) {
	u := c.endpoint(path, query)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
	}

	attempt := func(ctx context.Context) (*T, error) {
		return retry.WithTimeout(ctx, c.timeout, "", func(ctx context.Context) (*T, error) {
			return send[T](ctx, c, method, u, payload)
		})
	}
	exec := func(ctx context.Context) (*T, error) {
		if c.retryable(method) {
			return retry.Do(ctx, c.retrier, attempt)
		}
		return attempt(ctx)
	}

	if method == http.MethodGet {
		return dedup.Do(ctx, c.flights, method+" "+u.String(), exec)
	}
	return exec(ctx)
}

func send[T any](ctx context.Context, c *Client, method string, u *url.URL, payload []byte) (*T, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = trace.GenerateRequestID()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(trace.HeaderRequestID, requestID)
	if tok := c.token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierr.Network(err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		"request_id", requestID,
		"method", method,
		"path", u.Path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	return decodeResponse[T](resp)
}

// decodeResponse applies the response contract: non-2xx becomes an
// *apierr.Error, 204 and 200 with Content-Length 0 yield nil, anything else
// is decoded as JSON.
func decodeResponse[T any](resp *http.Response) (*T, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.FromResponse(resp)
	}
	if resp.StatusCode == http.StatusNoContent ||
		(resp.StatusCode == http.StatusOK && resp.ContentLength == 0) {
		return nil, nil
	}

	out := new(T)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
