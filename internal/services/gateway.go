package services

import (
	"context"

	"paytrack/internal/api"
	"paytrack/internal/core"
)

// Gateway is the remote API surface the services depend on. *api.Client
// implements it.
type Gateway interface {
	Health(ctx context.Context) (api.HealthStatus, error)
	GetBalance(ctx context.Context, dateFrom, dateTo string) (core.Balance, error)
	ListCategories(ctx context.Context, t core.CategoryType) (core.CategoryList, error)
	ListPayments(ctx context.Context, page, size int, filters *core.PaymentFilters) (core.Page[core.Payment], error)
	RecentPayments(ctx context.Context, limit int) ([]core.Payment, error)
	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	ListWallets(ctx context.Context) ([]core.Wallet, error)
	CreateWallet(ctx context.Context, name string) (core.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
}

var _ Gateway = (*api.Client)(nil)
