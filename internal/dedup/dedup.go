// Package dedup collapses concurrent calls that share an identity key into a
// single underlying execution.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group is an owned registry of in-flight calls. The zero value is ready to use.
type Group struct {
	sf singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
}

// New creates an empty Group.
func New() *Group {
	return &Group{}
}

// Do runs fn once per key among overlapping callers; every caller receives
// the same value or the same error. The key is released as soon as fn
// settles, on success and failure alike, so a later call starts fresh.
//
// The shared execution is detached from the first caller's cancellation. A
// caller whose ctx ends stops waiting but the execution continues for the
// remaining waiters.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("dedup %q: panic: %v", key, r)
			}
		}()
		return fn(shared)
	})

	g.join(key)
	defer g.leave(key)

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget drops the in-flight entry for key so the next call starts a new
// execution even while the current one is still running.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}

// Waiters returns how many callers are currently waiting on key.
func (g *Group) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters[key]
}

// InFlight reports whether any caller is waiting on key.
func (g *Group) InFlight(key string) bool {
	return g.Waiters(key) > 0
}

func (g *Group) join(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waiters == nil {
		g.waiters = make(map[string]int)
	}
	g.waiters[key]++
}

func (g *Group) leave(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waiters[key] <= 1 {
		delete(g.waiters, key)
		return
	}
	g.waiters[key]--
}

// Do is the typed form of Group.Do.
func Do[T any](ctx context.Context, g *Group, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := g.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dedup %q: shared result is %T, want %T", key, v, zero)
	}
	return out, nil
}
