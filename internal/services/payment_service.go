// Package services combines the API gateway with the query cache and the
// notification surface: cached reads, and mutations that invalidate the
// affected reads and report their outcome.
package services

import (
	"context"
	"fmt"

	"paytrack/internal/core"
	"paytrack/internal/filter"
	applog "paytrack/internal/log"
	"paytrack/internal/notify"
	"paytrack/internal/query"
)

// DefaultRecentLimit is the size of the recent payments list.
const DefaultRecentLimit = 5

// PaymentService orchestrates payment and wallet operations across the
// gateway, the query cache and the notifier.
type PaymentService struct {
	gateway  Gateway
	cache    *query.Client
	notifier notify.Notifier
	logger   *applog.Logger
}

func NewPaymentService(gateway Gateway, cache *query.Client, notifier notify.Notifier, logger *applog.Logger) *PaymentService {
	if cache == nil {
		cache = query.NewClient(query.DefaultConfig())
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &PaymentService{
		gateway:  gateway,
		cache:    cache,
		notifier: notifier,
		logger:   logger.WithComponent(applog.ComponentPayments),
	}
}

// Cache exposes the query cache, e.g. to inspect entry state.
func (s *PaymentService) Cache() *query.Client {
	return s.cache
}

// Balance returns the (optionally date-bounded) balance.
func (s *PaymentService) Balance(ctx context.Context, dateFrom, dateTo string) (core.Balance, error) {
	return query.Fetch(ctx, s.cache, query.BalanceKey(dateFrom, dateTo), func(ctx context.Context) (core.Balance, error) {
		return s.gateway.GetBalance(ctx, dateFrom, dateTo)
	})
}

// Payments returns one page of payments matching filters (nil means none).
func (s *PaymentService) Payments(ctx context.Context, page, size int, filters *core.PaymentFilters) (core.Page[core.Payment], error) {
	return query.Fetch(ctx, s.cache, query.PaymentsPagedKey(page, size, filters), func(ctx context.Context) (core.Page[core.Payment], error) {
		return s.gateway.ListPayments(ctx, page, size, filters)
	})
}

// PaymentsFor returns the page selected by a filter snapshot.
func (s *PaymentService) PaymentsFor(ctx context.Context, snap filter.Snapshot, size int) (core.Page[core.Payment], error) {
	return s.Payments(ctx, snap.CurrentPage, size, snap.Filters())
}

// RecentPayments returns the newest payments.
func (s *PaymentService) RecentPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return query.Fetch(ctx, s.cache, query.PaymentsRecentKey(limit), func(ctx context.Context) ([]core.Payment, error) {
		return s.gateway.RecentPayments(ctx, limit)
	})
}

// Categories returns categories, optionally restricted to one type.
func (s *PaymentService) Categories(ctx context.Context, t core.CategoryType) (core.CategoryList, error) {
	return query.Fetch(ctx, s.cache, query.CategoriesKey(t), func(ctx context.Context) (core.CategoryList, error) {
		return s.gateway.ListCategories(ctx, t)
	})
}

// Wallets returns every wallet.
func (s *PaymentService) Wallets(ctx context.Context) ([]core.Wallet, error) {
	return query.Fetch(ctx, s.cache, query.WalletsKey(), func(ctx context.Context) ([]core.Wallet, error) {
		return s.gateway.ListWallets(ctx)
	})
}

// AllPayments walks every page of the filtered history. Pages are read
// straight from the gateway so a long export does not flood the cache.
func (s *PaymentService) AllPayments(ctx context.Context, filters *core.PaymentFilters, pageSize int) ([]core.Payment, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []core.Payment
	for page := 0; ; page++ {
		p, err := s.gateway.ListPayments(ctx, page, pageSize, filters)
		if err != nil {
			return nil, fmt.Errorf("list payments page %d: %w", page, err)
		}
		all = append(all, p.Content...)
		if !p.HasNextPage() {
			return all, nil
		}
	}
}

// CreatePayment creates a payment, invalidates payments and balance, and
// reports the outcome.
func (s *PaymentService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	created, err := s.gateway.CreatePayment(ctx, p)
	s.logMutation(ctx, applog.OpCreate, paymentFields(created, p), err)
	if err != nil {
		s.notify(ctx, notify.Failure(applog.OpCreate, "Could not create payment", err).For(notify.ResourcePayment))
		return core.Payment{}, err
	}
	s.cache.OnMutation(query.MutationCreatePayment)
	s.notify(ctx, notify.Success(applog.OpCreate, "Payment created", created.Name).For(notify.ResourcePayment))
	return created, nil
}

// UpdatePayment replaces the payment with id.
func (s *PaymentService) UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error) {
	updated, err := s.gateway.UpdatePayment(ctx, id, p)
	p.ID = id
	s.logMutation(ctx, applog.OpUpdate, paymentFields(updated, p), err)
	if err != nil {
		s.notify(ctx, notify.Failure(applog.OpUpdate, "Could not update payment", err).For(notify.ResourcePayment))
		return core.Payment{}, err
	}
	s.cache.OnMutation(query.MutationUpdatePayment)
	s.notify(ctx, notify.Success(applog.OpUpdate, "Payment updated", updated.Name).For(notify.ResourcePayment))
	return updated, nil
}

// DeletePayment deletes the payment with id.
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	err := s.gateway.DeletePayment(ctx, id)
	s.logMutation(ctx, applog.OpDelete, applog.NewFields().With(applog.FieldPaymentID, id), err)
	if err != nil {
		s.notify(ctx, notify.Failure(applog.OpDelete, "Could not delete payment", err).For(notify.ResourcePayment))
		return err
	}
	s.cache.OnMutation(query.MutationDeletePayment)
	s.notify(ctx, notify.Success(applog.OpDelete, "Payment deleted", "").For(notify.ResourcePayment))
	return nil
}

// CreateWallet creates a wallet and invalidates wallet reads.
func (s *PaymentService) CreateWallet(ctx context.Context, name string) (core.Wallet, error) {
	w, err := s.gateway.CreateWallet(ctx, name)
	s.logMutation(ctx, applog.OpCreate, applog.NewFields().With(applog.FieldWallet, name), err)
	if err != nil {
		s.notify(ctx, notify.Failure(applog.OpCreate, "Could not create wallet", err).For(notify.ResourceWallet))
		return core.Wallet{}, err
	}
	s.cache.OnMutation(query.MutationCreateWallet)
	s.notify(ctx, notify.Success(applog.OpCreate, "Wallet created", w.Name).For(notify.ResourceWallet))
	return w, nil
}

// DeleteWallet deletes a wallet. Payments referencing it are not checked.
func (s *PaymentService) DeleteWallet(ctx context.Context, id string) error {
	err := s.gateway.DeleteWallet(ctx, id)
	s.logMutation(ctx, applog.OpDelete, applog.NewFields().With(applog.FieldWallet, id), err)
	if err != nil {
		s.notify(ctx, notify.Failure(applog.OpDelete, "Could not delete wallet", err).For(notify.ResourceWallet))
		return err
	}
	s.cache.OnMutation(query.MutationDeleteWallet)
	s.notify(ctx, notify.Success(applog.OpDelete, "Wallet deleted", "").For(notify.ResourceWallet))
	return nil
}

func (s *PaymentService) logMutation(ctx context.Context, op string, fields applog.LogFields, err error) {
	applog.LogMutation(ctx, s.logger, op, fields, err)
}

// notify never fails the mutation; delivery problems are only logged.
func (s *PaymentService) notify(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "Failed to deliver notification", "title", n.Title, "error", err)
	}
}

func paymentFields(got, sent core.Payment) applog.LogFields {
	p := got
	if p.ID == "" {
		p = sent
	}
	return applog.NewFields().WithPayment(p.ID, p.Name, p.AmountInCents, p.Category, p.Wallet)
}
