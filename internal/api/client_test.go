package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"paytrack/internal/apierr"
	"paytrack/internal/core"
	"paytrack/internal/retry"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetrier(retry.New(retry.DefaultConfig(), retry.WithSleeper(noSleep)))}, opts...)
	c, err := NewClient(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
	_, err = NewClient("://bad")
	assert.Error(t, err)
}

func TestDecodeResponseVoid(t *testing.T) {
	tests := []struct {
		name   string
		status int
		length int64
		body   string
	}{
		{"no content", http.StatusNoContent, -1, ""},
		{"ok with zero length", http.StatusOK, 0, ""},
		{"created with empty body", http.StatusCreated, -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode:    tt.status,
				ContentLength: tt.length,
				Body:          io.NopCloser(strings.NewReader(tt.body)),
				Header:        http.Header{},
			}
			v, err := decodeResponse[core.Balance](resp)
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestDecodeResponseError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       io.NopCloser(strings.NewReader(`{"detail":"amount must not be zero"}`)),
		Header:     http.Header{"Content-Type": {"application/json"}},
	}
	_, err := decodeResponse[core.Payment](resp)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 422, e.Status)
	assert.Equal(t, "amount must not be zero", e.Message)
	assert.True(t, e.IsValidationError())
}

func TestDeleteAcceptsEmptyResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/wallets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, mux)

	assert.NoError(t, c.DeletePayment(context.Background(), "p1"))
	assert.NoError(t, c.DeleteWallet(context.Background(), "w1"))
	assert.Error(t, c.DeletePayment(context.Background(), ""))
}

func TestListCategoriesNormalizesShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "expense", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `["food",{"id":"c1","name":"rent"}]`)
	})
	c := newTestClient(t, mux)

	list, err := c.ListCategories(context.Background(), core.CategoryTypeExpense)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.BareCategory("food"), list[0])
	assert.Equal(t, core.StructuredCategory{ID: "c1", Name: "rent", Icon: nil}, list[1])
}

func TestRequestHeaders(t *testing.T) {
	var (
		mu   sync.Mutex
		seen http.Header
	)
	got := func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/wallets", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Header.Clone()
		mu.Unlock()
		writeJSON(w, http.StatusOK, []core.Wallet{{ID: "w1", Name: "Main"}})
	})

	t.Run("provider token wins", func(t *testing.T) {
		c := newTestClient(t, mux, WithTokenProvider(StaticToken("from-provider")))
		c.SetToken("static")
		_, err := c.ListWallets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer from-provider", got().Get("Authorization"))
		assert.Equal(t, "application/json", got().Get("Content-Type"))
		assert.NotEmpty(t, got().Get("X-Request-ID"))
	})

	t.Run("empty provider falls back to static token", func(t *testing.T) {
		c := newTestClient(t, mux, WithTokenProvider(StaticToken("")))
		c.SetToken("static")
		_, err := c.ListWallets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer static", got().Get("Authorization"))
	})

	t.Run("failing provider falls back to static token", func(t *testing.T) {
		c := newTestClient(t, mux, WithTokenProvider(func(context.Context) (string, error) {
			return "", errors.New("identity down")
		}))
		c.SetToken("static")
		_, err := c.ListWallets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer static", got().Get("Authorization"))
	})

	t.Run("no token at all", func(t *testing.T) {
		c := newTestClient(t, mux)
		_, err := c.ListWallets(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got().Get("Authorization"))
	})

	t.Run("oauth2 token source", func(t *testing.T) {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "oauth"})
		c := newTestClient(t, mux, WithTokenProvider(OAuth2TokenProvider(ts)))
		_, err := c.ListWallets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer oauth", got().Get("Authorization"))
	})
}

func TestListPaymentsSendsFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("size"))
		assert.Equal(t, "food", q.Get("category"))
		assert.Equal(t, "pizza", q.Get("search"))
		assert.False(t, q.Has("wallet"))
		writeJSON(w, http.StatusOK, core.Page[core.Payment]{
			Content: []core.Payment{{ID: "p1", Name: "Pizza", AmountInCents: -1200}},
			Page:    2,
			Size:    10,
		})
	})
	c := newTestClient(t, mux)

	page, err := c.ListPayments(context.Background(), 2, 10, &core.PaymentFilters{Category: "food", Search: "pizza"})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.False(t, page.HasNextPage())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/balance", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, core.Balance{TotalInCents: 700, IncomeInCents: 1000, ExpensesInCents: -300})
	})
	c := newTestClient(t, mux)

	b, err := c.GetBalance(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(700), b.TotalInCents)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/wallets", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	c := newTestClient(t, mux)

	_, err := c.ListWallets(context.Background())
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.True(t, e.IsAuthError())
	assert.Equal(t, "token expired", e.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateIsNotRetriedByDefault(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/wallets", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	_, err := c.CreateWallet(context.Background(), "Savings")
	assert.True(t, apierr.ShouldRetry(err))
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	c = newTestClient(t, mux, WithRetryMutations(true))
	_, err = c.CreateWallet(context.Background(), "Savings")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreatePaymentValidatesLocally(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var p core.Payment
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		p.ID = "new-id"
		writeJSON(w, http.StatusCreated, p)
	})
	c := newTestClient(t, mux)

	_, err := c.CreatePayment(context.Background(), core.Payment{Name: "x"})
	assert.ErrorIs(t, err, core.ErrZeroAmount)
	assert.Equal(t, int32(0), calls.Load())

	p := core.NewPayment("Groceries", 5000, true, "Food", core.NewDate(2025, 3, 1), "Main")
	created, err := c.CreatePayment(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.Equal(t, int64(-5000), created.AmountInCents)
	assert.Equal(t, "food", created.Category)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, WithRetrier(retry.New(retry.Config{MaxAttempts: 2}, retry.WithSleeper(noSleep))))
	require.NoError(t, err)

	_, err = c.GetBalance(context.Background(), "", "")
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.True(t, e.IsNetworkError())
	assert.Equal(t, apierr.MessageNetwork, apierr.UserMessage(err))
}

func TestAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
	})
	c := newTestClient(t, mux,
		WithTimeout(20*time.Millisecond),
		WithRetrier(retry.New(retry.Config{MaxAttempts: 1}, retry.WithSleeper(noSleep))))
	defer close(release)

	_, err := c.Health(context.Background())
	assert.True(t, apierr.IsTimeout(err))
}

func TestConcurrentGetsAreCoalesced(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/wallets", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, http.StatusOK, []core.Wallet{{ID: "w1", Name: "Main"}})
	})
	c := newTestClient(t, mux)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, err := c.ListWallets(context.Background())
			assert.NoError(t, err)
			assert.Len(t, ws, 1)
		}()
	}

	key := "GET " + c.endpoint("/wallets", nil).String()
	require.Eventually(t, func() bool { return c.Flights().Waiters(key) == 3 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}
