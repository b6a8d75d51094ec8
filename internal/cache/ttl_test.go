package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTL(t *testing.T) {
	withCache := func(fn func(c *TTL[string], clock *fakeClock)) {
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		fn(New[string](10*time.Minute, 2*time.Minute, WithClock[string](clock.Now)), clock)
	}

	t.Run("sweep evicts idle entries", func(t *testing.T) {
		withCache(func(c *TTL[string], clock *fakeClock) {
			c.Put("a", "1")
			c.Put("b", "2")
			clock.Advance(6 * time.Minute)
			c.Get("a")
			clock.Advance(5 * time.Minute)

			if n := c.Sweep(); n != 1 {
				t.Errorf("expected 1 eviction, got %d", n)
			}
			if _, ok := c.Get("b"); ok {
				t.Error("b should be evicted")
			}
			if v, ok := c.Get("a"); !ok || v != "1" {
				t.Error("a was accessed recently and should survive")
			}
		})
	})

	t.Run("sweep on empty cache", func(t *testing.T) {
		withCache(func(c *TTL[string], _ *fakeClock) {
			if n := c.Sweep(); n != 0 {
				t.Errorf("expected no eviction, got %d", n)
			}
		})
	})

	t.Run("get or populate", func(t *testing.T) {
		withCache(func(c *TTL[string], _ *fakeClock) {
			calls := 0
			loader := func() (string, error) {
				calls++
				return "loaded", nil
			}
			for i := 0; i < 3; i++ {
				v, err := c.GetOrPopulate("k", loader)
				if err != nil || v != "loaded" {
					t.Fatalf("unexpected result %q, %v", v, err)
				}
			}
			if calls != 1 {
				t.Errorf("loader ran %d times", calls)
			}
		})
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		withCache(func(c *TTL[string], _ *fakeClock) {
			_, err := c.GetOrPopulate("k", func() (string, error) { return "", errors.New("boom") })
			if err == nil {
				t.Fatal("expected the loader error")
			}
			if c.Len() != 0 {
				t.Error("a failed load must not be stored")
			}
		})
	})

	t.Run("evict callback", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		var evicted []string
		c := New[int](time.Minute, 0,
			WithClock[int](clock.Now),
			WithOnEvict[int](func(key string, _ int) { evicted = append(evicted, key) }))
		c.Put("x", 1)
		clock.Advance(2 * time.Minute)
		c.Sweep()
		if len(evicted) != 1 || evicted[0] != "x" {
			t.Errorf("unexpected evictions: %v", evicted)
		}
	})
}

func TestIntervalBelowTTL(t *testing.T) {
	c := New[int](10*time.Minute, 15*time.Minute)
	if c.Interval() >= c.TTL() {
		t.Errorf("interval %s not below ttl %s", c.Interval(), c.TTL())
	}
}

func TestConcurrentPopulate(t *testing.T) {
	c := New[int](time.Minute, 0)
	var loads atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrPopulate("same", func() (int, error) {
				loads.Add(1)
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("unexpected result %d, %v", v, err)
			}
		}()
	}
	wg.Wait()
	if loads.Load() < 1 {
		t.Error("loader never ran")
	}
	if c.Len() != 1 {
		t.Errorf("expected a single entry, got %d", c.Len())
	}
}
