package cache // import "github.com/Xunop/e-oasis-mcp/internal/cache"

import (
	"sync"
	"time"
)

// TTL is an in-memory cache whose entries expire after sitting unused for
// longer than the TTL. Eviction only happens in Sweep, which the owner runs
// on its own schedule.
type TTL[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	onEvict  func(key string, value V)
}

type entry[V any] struct {
	value      V
	lastAccess time.Time
}

type Option[V any] func(*TTL[V])

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTL[V]) {
		c.now = now
	}
}

// WithOnEvict registers a callback run for every entry removed by Sweep.
func WithOnEvict[V any](fn func(key string, value V)) Option[V] {
	return func(c *TTL[V]) {
		c.onEvict = fn
	}
}

// New creates a cache. An interval that is not shorter than the TTL is
// replaced by half the TTL.
func New[V any](ttl, interval time.Duration, opts ...Option[V]) *TTL[V] {
	if interval <= 0 || interval >= ttl {
		interval = ttl / 2
	}
	c := &TTL[V]{
		entries:  make(map[string]*entry[V]),
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and refreshes its access time.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	e.lastAccess = c.now()
	return e.value, true
}

func (c *TTL[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[V]{value: value, lastAccess: c.now()}
}

func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrPopulate returns the cached value or stores the loader's result.
// The loader runs without the lock held: two callers missing the same key
// may both load, and the last one to finish wins. Loaders must therefore be
// idempotent. A loader error is returned and nothing is stored.
func (c *TTL[V]) GetOrPopulate(key string, loader func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

// Sweep evicts every entry idle for longer than the TTL and returns how many
// were removed. It is safe on an empty cache.
func (c *TTL[V]) Sweep() int {
	now := c.now()
	var evicted []struct {
		key   string
		value V
	}

	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.lastAccess) > c.ttl {
			delete(c.entries, key)
			evicted = append(evicted, struct {
				key   string
				value V
			}{key, e.value})
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range evicted {
			c.onEvict(e.key, e.value)
		}
	}
	return len(evicted)
}

func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}

// Interval is how often the owner should call Sweep.
func (c *TTL[V]) Interval() time.Duration {
	return c.interval
}
