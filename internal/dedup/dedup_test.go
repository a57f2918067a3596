package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	val *int
	err error
}

func TestConcurrentCallsShareOneExecution(t *testing.T) {
	g := New()
	var calls atomic.Int32
	release := make(chan struct{})

	stub := func(context.Context) (*int, error) {
		n := int(calls.Add(1))
		<-release
		return &n, nil
	}

	results := make(chan result, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v, err := Do(context.Background(), g, "K", stub)
			results <- result{v, err}
		}()
	}

	require.Eventually(t, func() bool { return g.Waiters("K") == 3 }, time.Second, time.Millisecond)
	close(release)

	var first *int
	for i := 0; i < 3; i++ {
		r := <-results
		require.NoError(t, r.err)
		if first == nil {
			first = r.val
		}
		assert.Same(t, first, r.val)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, g.InFlight("K"))

	// The key was released on settlement, so this starts a new execution.
	v, err := Do(context.Background(), g, "K", stub)
	require.NoError(t, err)
	assert.Equal(t, 2, *v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFailureIsSharedAndReleased(t *testing.T) {
	g := New()
	var calls atomic.Int32
	release := make(chan struct{})
	boom := errors.New("boom")

	stub := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "", boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Do(context.Background(), g, "K", stub)
		}(i)
	}
	require.Eventually(t, func() bool { return g.Waiters("K") == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := Do(context.Background(), g, "K", stub)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDifferentKeysRunIndependently(t *testing.T) {
	g := New()
	release := make(chan struct{})
	var calls atomic.Int32

	stub := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = Do(context.Background(), g, key, stub)
		}(key)
	}

	// All three executions must be running at the same time.
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
}

func TestCallerCancellationDoesNotCancelSharedExecution(t *testing.T) {
	g := New()
	release := make(chan struct{})
	var sawCancel atomic.Bool

	stub := func(ctx context.Context) (int, error) {
		<-release
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return 7, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Do(ctx, g, "K", stub)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return g.Waiters("K") == 1 }, time.Second, time.Millisecond)

	valCh := make(chan int, 1)
	go func() {
		v, _ := Do(context.Background(), g, "K", stub)
		valCh <- v
	}()
	require.Eventually(t, func() bool { return g.Waiters("K") == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	assert.Equal(t, 7, <-valCh)
	assert.False(t, sawCancel.Load())
}

func TestPanicBecomesError(t *testing.T) {
	g := New()
	_, err := Do(context.Background(), g, "P", func(context.Context) (int, error) {
		panic("kaboom")
	})
	assert.ErrorContains(t, err, "kaboom")
}
