package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"paytrack/internal/core"
)

// Dashboard is the overview screen's data.
type Dashboard struct {
	Balance    core.Balance
	Recent     []core.Payment
	Wallets    []core.Wallet
	Categories core.CategoryList
}

// Dashboard loads the overview concurrently through the cache. The first
// failure cancels the remaining reads.
func (s *PaymentService) Dashboard(ctx context.Context, recentLimit int) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := s.Balance(ctx, "", "")
		if err != nil {
			return fmt.Errorf("load balance: %w", err)
		}
		d.Balance = b
		return nil
	})
	g.Go(func() error {
		recent, err := s.RecentPayments(ctx, recentLimit)
		if err != nil {
			return fmt.Errorf("load recent payments: %w", err)
		}
		d.Recent = recent
		return nil
	})
	g.Go(func() error {
		wallets, err := s.Wallets(ctx)
		if err != nil {
			return fmt.Errorf("load wallets: %w", err)
		}
		d.Wallets = wallets
		return nil
	})
	g.Go(func() error {
		cats, err := s.Categories(ctx, core.CategoryTypeAll)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		d.Categories = cats
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
