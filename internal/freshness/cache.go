// Package freshness provides a time-bounded read cache that fronts the
// stores. Entries are served while younger than the caller's TTL; staleness is
// computed on read, so nothing expires in the background.
//
// Entry lifecycle: Empty -> Fresh (load) -> Stale (ttl elapsed) -> Fresh
// (next successful load), and any state -> Empty on Invalidate.
package freshness

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key. Its context is detached from the
// cancellation of the caller that triggered the load, since other callers
// may be waiting on the same result.
type Loader func(ctx context.Context) (any, error)

// Observer receives cache events, e.g. for metrics.
type Observer interface {
	Hit(key string)
	Miss(key string)
	Loaded(key string, took time.Duration, err error)
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Loads      uint64
	LoadErrors uint64
}

type entry struct {
	value    any
	loadedAt time.Time
}

// Cache is safe for concurrent use. Concurrent misses on one key share a
// single loader call.
type Cache struct {
	items *cache.Cache
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64

	now      func() time.Time
	observer Observer

	hits, misses, loads, loadErrors atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver reports hits, misses and loads to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		// No default expiration and no janitor goroutine.
		items: cache.New(cache.NoExpiration, 0),
		gens:  make(map[string]uint64),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if it was loaded at most ttl ago.
// Otherwise it calls loader, caches the result and returns it. A failed load
// is returned to the caller and leaves any previous entry in place.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, loader Loader) (any, error) {
	if v, ok := c.fresh(key, ttl); ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.Hit(key)
		}
		return v, nil
	}
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.Miss(key)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.generation(key)
		// A flight that finished just before this one started may have
		// refreshed the entry already.
		if v, ok := c.fresh(key, ttl); ok {
			return v, nil
		}
		return c.load(detached, key, gen, loader)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, key string, gen uint64, loader Loader) (any, error) {
	start := c.now()
	v, err := loader(ctx)
	took := c.now().Sub(start)

	c.loads.Add(1)
	if err != nil {
		c.loadErrors.Add(1)
	}
	if c.observer != nil {
		c.observer.Loaded(key, took, err)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An invalidate during the load means v may predate a write; hand it to
	// the waiting callers but do not keep it.
	if c.gens[key] == gen {
		c.items.Set(key, entry{value: v, loadedAt: c.now()}, cache.NoExpiration)
	}
	c.mu.Unlock()
	return v, nil
}

func (c *Cache) fresh(key string, ttl time.Duration) (any, bool) {
	raw, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if c.now().Sub(e.loadedAt) > ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.gens[key]
	if !ok {
		c.gens[key] = 0
	}
	return gen
}

// Invalidate empties key so the next Get reloads it. Loads already in flight
// are detached: their results reach their own callers but are not cached.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.items.Delete(key)
	c.group.Forget(key)
}

// InvalidateAll empties every key.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		c.gens[key]++
		c.group.Forget(key)
	}
	c.items.Flush()
}

// Age reports how long ago key was loaded.
func (c *Cache) Age(key string) (time.Duration, bool) {
	raw, ok := c.items.Get(key)
	if !ok {
		return 0, false
	}
	return c.now().Sub(raw.(entry).loadedAt), true
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		LoadErrors: c.loadErrors.Load(),
	}
}

// Fetch is a typed wrapper around Get.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("freshness: key %q holds %T", key, v)
	}
	return t, nil
}
