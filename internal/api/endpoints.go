package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"paytrack/internal/core"
)

// HealthStatus is the backend liveness report.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

type walletRequest struct {
	Name string `json:"name"`
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	h, err := call[HealthStatus](ctx, c, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health check: %w", err)
	}
	if h == nil {
		return HealthStatus{Status: "ok"}, nil
	}
	return *h, nil
}

// GetBalance returns the aggregate over the optional inclusive date range.
func (c *Client) GetBalance(ctx context.Context, dateFrom, dateTo string) (core.Balance, error) {
	q := url.Values{}
	setIf(q, "dateFrom", dateFrom)
	setIf(q, "dateTo", dateTo)

	b, err := call[core.Balance](ctx, c, http.MethodGet, "/balance", q, nil)
	if err != nil {
		return core.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	if b == nil {
		return core.Balance{}, nil
	}
	return *b, nil
}

// ListCategories returns the mixed-shape category list, optionally narrowed
// to expense or income categories.
func (c *Client) ListCategories(ctx context.Context, t core.CategoryType) (core.CategoryList, error) {
	q := url.Values{}
	setIf(q, "type", string(t))

	l, err := call[core.CategoryList](ctx, c, http.MethodGet, "/categories", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if l == nil {
		return core.CategoryList{}, nil
	}
	return *l, nil
}

// ListPayments returns one 0-based page of payments matching filters.
func (c *Client) ListPayments(ctx context.Context, page, size int, filters *core.PaymentFilters) (core.Page[core.Payment], error) {
	if page < 0 {
		page = 0
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	if filters != nil {
		setIf(q, "dateFrom", filters.DateFrom)
		setIf(q, "dateTo", filters.DateTo)
		setIf(q, "category", filters.Category)
		setIf(q, "wallet", filters.Wallet)
		setIf(q, "search", filters.Search)
	}

	p, err := call[core.Page[core.Payment]](ctx, c, http.MethodGet, "/payments", q, nil)
	if err != nil {
		return core.Page[core.Payment]{}, fmt.Errorf("list payments: %w", err)
	}
	if p == nil {
		return core.Page[core.Payment]{Page: page, Size: size}, nil
	}
	if p.Content == nil {
		p.Content = []core.Payment{}
	}
	return *p, nil
}

// RecentPayments returns the newest payments, at most limit of them.
func (c *Client) RecentPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	page, err := c.ListPayments(ctx, 0, limit, nil)
	if err != nil {
		return nil, err
	}
	return page.Content, nil
}

// CreatePayment validates p locally and posts it. The backend assigns the id.
func (c *Client) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("invalid payment: %w", err)
	}
	p.ID = ""

	created, err := call[core.Payment](ctx, c, http.MethodPost, "/payments", nil, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	if created == nil {
		return p, nil
	}
	return *created, nil
}

// UpdatePayment replaces the full record stored under id.
func (c *Client) UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error) {
	if id == "" {
		return core.Payment{}, fmt.Errorf("update payment: empty id")
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("invalid payment: %w", err)
	}
	p.ID = id

	updated, err := call[core.Payment](ctx, c, http.MethodPut, "/payments/"+id, nil, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("update payment %s: %w", id, err)
	}
	if updated == nil {
		return p, nil
	}
	return *updated, nil
}

func (c *Client) DeletePayment(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete payment: empty id")
	}
	if _, err := call[struct{}](ctx, c, http.MethodDelete, "/payments/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	ws, err := call[[]core.Wallet](ctx, c, http.MethodGet, "/wallets", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	if ws == nil {
		return []core.Wallet{}, nil
	}
	return *ws, nil
}

// CreateWallet creates a wallet with just a name.
func (c *Client) CreateWallet(ctx context.Context, name string) (core.Wallet, error) {
	w := core.Wallet{Name: name}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, fmt.Errorf("invalid wallet: %w", err)
	}

	created, err := call[core.Wallet](ctx, c, http.MethodPost, "/wallets", nil, walletRequest{Name: name})
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	if created == nil {
		return w, nil
	}
	return *created, nil
}

// DeleteWallet deletes by id. Payments that reference the wallet are left as is.
func (c *Client) DeleteWallet(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete wallet: empty id")
	}
	if _, err := call[struct{}](ctx, c, http.MethodDelete, "/wallets/"+id, nil, nil); err != nil {
		return fmt.Errorf("delete wallet %s: %w", id, err)
	}
	return nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
