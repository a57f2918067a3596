// Package query is a read-through cache for API resources with per-resource
// staleness windows and mutation-driven invalidation.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"paytrack/internal/cache"
	"paytrack/internal/dedup"
)

// State describes a key's cache entry.
type State int

const (
	StateMissing State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "missing"
	}
}

// Config holds cache sizing and timing.
type Config struct {
	// StaleTimes per resource (default: DefaultStaleTimes)
	StaleTimes StaleTimes

	// GCTime is how long an unused entry survives (default: 5m)
	GCTime time.Duration

	// MaxEntries bounds the number of cached keys (default: 500)
	MaxEntries int

	// CleanupInterval is how often expired entries are purged (default: 1m)
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		StaleTimes:      DefaultStaleTimes(),
		GCTime:          5 * time.Minute,
		MaxEntries:      500,
		CleanupInterval: time.Minute,
	}
}

type entry struct {
	key         Key
	value       any
	fetchedAt   time.Time
	invalidated bool
}

// Client caches query results. Invalidation marks entries stale; the next
// read refetches.
type Client struct {
	config  Config
	entries *cache.LRUCache[*entry]
	manager *cache.Manager
	flights *dedup.Group
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	generations map[Resource]uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithClock swaps the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
		c.entries.WithClock(now)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDedup shares an in-flight registry with other components.
func WithDedup(g *dedup.Group) Option {
	return func(c *Client) {
		if g != nil {
			c.flights = g
		}
	}
}

// NewClient creates a query cache. Zero config fields use DefaultConfig.
func NewClient(config Config, opts ...Option) *Client {
	def := DefaultConfig()
	if config.StaleTimes == nil {
		config.StaleTimes = def.StaleTimes
	}
	if config.GCTime <= 0 {
		config.GCTime = def.GCTime
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = def.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	c := &Client{
		config:      config,
		entries:     cache.NewLRUCache[*entry](config.MaxEntries, config.GCTime),
		flights:     dedup.New(),
		logger:      slog.Default(),
		now:         time.Now,
		generations: make(map[Resource]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.manager = cache.NewManager(c.logger)
	c.manager.Register(c.entries)
	return c
}

// Start launches the background purge of unused entries.
func (c *Client) Start() {
	c.manager.StartCleanup(c.config.CleanupInterval)
}

// Close stops background work.
func (c *Client) Close() {
	c.manager.Stop()
}

// State reports whether key is missing, fresh or stale.
func (c *Client) State(key Key) State {
	e, ok := c.entries.Get(key.String())
	if !ok {
		return StateMissing
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isFresh(e) {
		return StateFresh
	}
	return StateStale
}

// isFresh must be called with c.mu held.
func (c *Client) isFresh(e *entry) bool {
	if e.invalidated {
		return false
	}
	return c.now().Sub(e.fetchedAt) < c.config.StaleTimes.For(e.key)
}

// Invalidate marks every entry of the given resources stale and detaches
// in-flight fetches for them so later reads start over.
func (c *Client) Invalidate(resources ...Resource) int {
	set := make(map[Resource]struct{}, len(resources))
	c.mu.Lock()
	for _, r := range resources {
		set[r] = struct{}{}
		c.generations[r]++
	}
	c.mu.Unlock()

	marked := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Get(k)
		if !ok {
			continue
		}
		if _, hit := set[e.key.Resource]; !hit {
			continue
		}
		c.mu.Lock()
		e.invalidated = true
		c.mu.Unlock()
		c.flights.Forget(k)
		marked++
	}

	c.logger.Debug("Cache invalidated", "resources", resources, "entries", marked)
	return marked
}

// OnMutation applies the invalidation rule for m.
func (c *Client) OnMutation(m Mutation) int {
	return c.Invalidate(m.Invalidates()...)
}

// Clear drops every entry.
func (c *Client) Clear() {
	for _, k := range c.entries.Keys() {
		c.entries.Delete(k)
	}
}

func (c *Client) generation(r Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[r]
}

// Fetch returns the cached value for key while fresh; otherwise it runs
// fetch (collapsing concurrent misses for the same key) and caches the
// result. Failures are not cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	if e, ok := c.entries.Get(k); ok {
		c.mu.Lock()
		fresh := c.isFresh(e)
		v := e.value
		c.mu.Unlock()
		if fresh {
			if out, ok := v.(T); ok {
				return out, nil
			}
		}
	}

	gen := c.generation(key.Resource)
	v, err := dedup.Do(ctx, c.flights, k, fetch)
	if err != nil {
		return zero, fmt.Errorf("fetch %s: %w", k, err)
	}

	e := &entry{key: key, value: v, fetchedAt: c.now()}
	// A mutation landed while this fetch was running: keep the value but
	// let the next read refetch.
	if c.generation(key.Resource) != gen {
		e.invalidated = true
	}
	c.entries.Set(k, e)
	return v, nil
}

// Set seeds an entry directly, e.g. after a mutation returned the new state.
func Set[T any](c *Client, key Key, v T) {
	c.entries.Set(key.String(), &entry{key: key, value: v, fetchedAt: c.now()})
}

// Get returns a cached value regardless of staleness.
func Get[T any](c *Client, key Key) (T, bool) {
	var zero T
	e, ok := c.entries.Get(key.String())
	if !ok {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return out, true
}
