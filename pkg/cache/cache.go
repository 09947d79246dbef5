// Package cache provides an in-memory TTL cache whose misses are loaded through
// a single-flight group, so concurrent callers asking for the same missing key
// share one load.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Result tells the caller where a value came from.
type Result int

const (
	// Miss means the loader ran for this caller.
	Miss Result = iota
	// Hit means the value was served from a live entry.
	Hit
	// Shared means the caller joined a load started by another caller.
	Shared
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Shared:
		return "shared"
	default:
		return "miss"
	}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a generic TTL cache. Expired entries are dropped lazily on lookup.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces time.Now.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// New creates a cache with a fixed ttl for every entry.
func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a live value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if !now.Before(item.expiresAt) {
		c.mu.Lock()
		// re-check under the write lock, a loader may have refreshed it
		if cur, ok := c.items[key]; ok && !now.Before(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	return item.value, true
}

// Set stores value for key with the cache ttl.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrLoad returns the cached value for key or runs load once for all
// concurrent callers of the same key. Failed loads are not cached.
// The load keeps the values of the first caller's ctx but not its cancellation,
// so a caller that leaves early does not fail the load for the others; load
// must bound its own work.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, Result, error) {
	if v, ok := c.Get(key); ok {
		return v, Hit, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprint(key), func() (interface{}, error) {
		// a caller that lost the race to an earlier flight may find the value stored
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, Miss, ctx.Err()
	case res := <-ch:
		result := Miss
		if res.Shared {
			result = Shared
		}
		if res.Err != nil {
			var zero V
			return zero, result, res.Err
		}
		return res.Val.(V), result, nil
	}
}
