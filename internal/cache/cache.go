// Package cache is an in-process read-through cache with per-entry expiry
// and prefix invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is the capability services depend on.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	InvalidatePrefix(prefix string) int

	// Load returns the cached value for key, calling fn on a miss. Only one
	// fn runs per key at a time; concurrent callers share its result.
	// Errors are not cached.
	Load(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error)
}

type entry struct {
	value     any
	expiresAt time.Time // zero never expires
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache implements Store on a sync.Map.
type Cache struct {
	entries sync.Map // string -> entry
	group   singleflight.Group
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{now: time.Now}
}

// Get returns a live entry for key.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if e.expired(c.now()) {
		c.entries.CompareAndDelete(key, v)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A ttl of zero or less keeps it until it is
// deleted or invalidated.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries.Store(key, e)
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.entries.Delete(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	n := 0
	c.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			c.entries.Delete(k)
			n++
		}
		return true
	})
	return n
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.InvalidatePrefix("")
}

// Load implements Store.
func (c *Cache) Load(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// Fetch is Load with the value asserted to T.
func Fetch[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	v, err := s.Load(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return t, nil
}
