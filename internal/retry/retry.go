// Package retry re-invokes fallible operations with exponential backoff and
// races single attempts against a deadline.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"paytrack/internal/apierr"
)

// Config holds the backoff settings.
type Config struct {
	// MaxAttempts bounds how many times the operation runs (default: 3)
	MaxAttempts int

	// Delay is the wait before the first retry (default: 1s)
	Delay time.Duration

	// BackoffMultiplier scales the delay after every failed attempt (default: 2)
	BackoffMultiplier float64

	// MaxDelay caps any single wait (default: 30s)
	MaxDelay time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		Delay:             time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          30 * time.Second,
	}
}

// CalculateDelay returns the wait after the given 1-based failed attempt:
// Delay * BackoffMultiplier^(attempt-1), capped at MaxDelay.
func (c Config) CalculateDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(c.Delay) * math.Pow(c.BackoffMultiplier, float64(attempt-1))
	if c.MaxDelay > 0 && (d > float64(c.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d)) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Predicate decides whether a failure is worth another attempt.
type Predicate func(err error) bool

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier runs operations under a Config.
type Retrier struct {
	config      Config
	shouldRetry Predicate
	sleep       Sleeper
	logger      *slog.Logger
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithPredicate overrides the default classification-based predicate.
func WithPredicate(p Predicate) Option {
	return func(r *Retrier) {
		if p != nil {
			r.shouldRetry = p
		}
	}
}

// WithSleeper replaces the timer-based wait, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Retrier. Zero config fields fall back to DefaultConfig.
func New(config Config, opts ...Option) *Retrier {
	def := DefaultConfig()
	if config.MaxAttempts < 1 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Delay <= 0 {
		config.Delay = def.Delay
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = def.BackoffMultiplier
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}

	r := &Retrier{
		config:      config,
		shouldRetry: apierr.ShouldRetry,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective configuration.
func (r *Retrier) Config() Config {
	return r.config
}

// Run invokes op until it succeeds, the predicate rejects the failure, or
// MaxAttempts is reached. The last failure is the one returned.
func (r *Retrier) Run(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.config.MaxAttempts {
			break
		}
		if !r.shouldRetry(lastErr) {
			return lastErr
		}

		delay := r.config.CalculateDelay(attempt)
		r.logger.WarnContext(ctx, "Attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, err)
		}
	}

	r.logger.ErrorContext(ctx, "All attempts failed",
		"attempts", r.config.MaxAttempts,
		"error", lastErr)
	return lastErr
}

// Do is Run for operations that produce a value.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
