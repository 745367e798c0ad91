package memorystore

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is replaced wholesale on refresh, never mutated.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a process-local key→value store with per-lookup expiry.
// Entries are never evicted; they are only superseded.
type Cache[K ~string, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	flight  singleflight.Group
	now     func() time.Time
}

func NewCache[K ~string, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the value for key if it was stored less than ttl ago.
func (c *Cache[K, V]) Get(key K, ttl time.Duration) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, stamped now.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// GetOrResolve returns the fresh cached value for key, or calls resolve and
// caches its result. Concurrent misses for the same key share one resolve
// call. A resolve error is returned to every waiter and is not cached.
//
// resolve runs on a context that keeps ctx's values but not its
// cancellation, so a caller that gives up does not fail the other waiters.
// That caller gets ctx.Err(); the shared call keeps running and its result
// is still cached. resolve must bound its own run time.
func (c *Cache[K, V]) GetOrResolve(ctx context.Context, key K, resolve func(context.Context) (V, error), ttl time.Duration) (V, error) {
	var zero V
	if v, ok := c.Get(key, ttl); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(string(key), func() (any, error) {
		// a flight that finished just before this one may have stored it
		if v, ok := c.Get(key, ttl); ok {
			return v, nil
		}
		v, err := resolve(shared)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// StoredAt reports when key was last written.
func (c *Cache[K, V]) StoredAt(key K) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.storedAt, ok
}

// Len returns the number of entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
