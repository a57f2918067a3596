package retry

import (
	"context"
	"time"

	"paytrack/internal/apierr"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultTimeoutMessage = apierr.DefaultTimeoutMessage
)

type result[T any] struct {
	val T
	err error
}

// WithTimeout races op against a timer. When the timer wins the caller gets
// an apierr timeout (status 0, code TIMEOUT). op keeps running with the
// caller's context and its late outcome is discarded.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, message string, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if message == "" {
		message = DefaultTimeoutMessage
	}

	done := make(chan result[T], 1)
	go func() {
		v, err := op(ctx)
		done <- result[T]{val: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case res := <-done:
		return res.val, res.err
	case <-timer.C:
		return zero, apierr.Timeout(message)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
