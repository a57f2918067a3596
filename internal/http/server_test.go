package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paytrack/internal/core"
	applog "paytrack/internal/log"
	"paytrack/internal/mockapi"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store := mockapi.New(mockapi.DefaultCategories(), []string{"Main", "Cash"})
	srv := NewServer(cfg, store, quietLogger())
	t.Cleanup(func() {
		if srv.limiter != nil {
			srv.limiter.Stop()
		}
	})
	return srv
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndHeaders(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req_abc")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-Request-ID"); got != "req_abc" {
		t.Errorf("request id not echoed: %q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestPaymentLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler

	p := core.NewPayment("Groceries", 5000, true, "food", core.NewDate(2025, 3, 1), "Main")
	rr := do(t, h, http.MethodPost, "/api/payments", p)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Payment
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("bad created payment %s (err=%v)", rr.Body.String(), err)
	}

	rr = do(t, h, http.MethodGet, "/api/balance", nil)
	var b core.Balance
	_ = json.Unmarshal(rr.Body.Bytes(), &b)
	if b.TotalInCents != -5000 || b.ExpensesInCents != -5000 || b.IncomeInCents != 0 {
		t.Errorf("unexpected balance %+v", b)
	}

	created.Name = "Supermarket"
	rr = do(t, h, http.MethodPut, "/api/payments/"+created.ID, created)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/payments?search=super&size=5", nil)
	var page core.Page[core.Payment]
	_ = json.Unmarshal(rr.Body.Bytes(), &page)
	if len(page.Content) != 1 || page.Content[0].Name != "Supermarket" || page.Size != 5 {
		t.Errorf("unexpected page %+v", page)
	}

	rr = do(t, h, http.MethodDelete, "/api/payments/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = do(t, h, http.MethodDelete, "/api/payments/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t, Config{})
	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"zero amount", http.MethodPost, "/api/payments", core.Payment{Name: "x", Category: "food", Wallet: "Main", Date: core.NewDate(2025, 1, 1)}, 422},
		{"bad page", http.MethodGet, "/api/payments?page=-2", nil, 400},
		{"page offset overflow", http.MethodGet, "/api/payments?page=92233720368547759&size=100", nil, 400},
		{"bad date", http.MethodGet, "/api/balance?dateFrom=yesterday", nil, 400},
		{"bad category type", http.MethodGet, "/api/categories?type=transfer", nil, 400},
		{"empty wallet name", http.MethodPost, "/api/wallets", map[string]string{"name": " "}, 422},
		{"duplicate wallet", http.MethodPost, "/api/wallets", map[string]string{"name": "main"}, 409},
		{"unknown wallet", http.MethodDelete, "/api/wallets/nope", nil, 404},
		{"unknown route", http.MethodGet, "/api/unknown", nil, 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv.Handler, tt.method, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body=%s)", rr.Code, tt.want, rr.Body.String())
			}
			var body ErrorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Detail == "" {
				t.Errorf("missing error detail: %s", rr.Body.String())
			}
		})
	}
}

func TestCategoriesMixShapes(t *testing.T) {
	srv := newTestServer(t, Config{})

	rr := do(t, srv.Handler, http.MethodGet, "/api/categories?type=income", nil)
	var list core.CategoryList
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := list.Names()
	if len(names) != 2 || names[0] != "salary" || names[1] != "other" {
		t.Errorf("unexpected income categories %v", names)
	}
	if _, ok := list[1].(core.BareCategory); !ok {
		t.Errorf("untyped category should be served bare, got %T", list[1])
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv.Handler, http.MethodGet, "/api/wallets", nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := do(t, srv.Handler, http.MethodGet, "/api/wallets", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if srv.limiter.Rejected() != 1 {
		t.Errorf("rejected = %d", srv.limiter.Rejected())
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	h := NewHandler(mockapi.New(nil, nil), quietLogger(), "api")
	rr := do(t, h, http.MethodGet, "/api/payments?search=../../etc/passwd", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestMetricsCountFailures(t *testing.T) {
	srv := newTestServer(t, Config{})
	do(t, srv.Handler, http.MethodGet, "/api/wallets", nil)
	do(t, srv.Handler, http.MethodDelete, "/api/wallets/missing", nil)

	m := srv.Metrics()
	if m.TotalRequests != 2 || m.FailedRequests != 1 {
		t.Errorf("metrics = %+v", m)
	}
}
