package arc

import (
	"errors"
	"sync"

	"github.com/motoki317/arc/lru"
)

// TieredCache routes values to one of several inner caches by cost.
// Each tier accepts values up to its bound; a value larger than every
// bound is not cached at all. Keeping size classes apart stops a few
// huge values from evicting a crowd of small ones.
//
// Tiers are registered in ascending bound order with AddCache. Reads
// scan the tiers in order; entries never migrate between tiers.
type TieredCache[K comparable, V any] struct {
	mu    sync.Locker
	sizer lru.Sizer[V]

	maxSize int64
	bounds  []int64
	caches  []Cache[K, V]
}

var _ Cache[string, string] = (*TieredCache[string, string])(nil)

// NewTiered creates an empty tiered cache. The sizer must agree with the
// inner caches' sizers, since it decides the routing.
func NewTiered[K comparable, V any](opts ...Option[V]) *TieredCache[K, V] {
	cfg := defaultConfig[V]()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TieredCache[K, V]{
		mu:    cfg.lock,
		sizer: cfg.sizer,
	}
}

// AddCache registers a tier holding values of cost up to bound. Bounds
// must be added in strictly increasing order.
func (c *TieredCache[K, V]) AddCache(bound int64, inner Cache[K, V]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.bounds) > 0 && bound <= c.bounds[len(c.bounds)-1] {
		return errors.New("tier bounds need to be strictly increasing")
	}
	c.bounds = append(c.bounds, bound)
	c.caches = append(c.caches, inner)
	c.maxSize += inner.MaxSize()
	return nil
}

// Get scans the tiers in order and returns the first hit.
func (c *TieredCache[K, V]) Get(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inner := range c.caches {
		if v, ok := inner.Get(key); ok {
			return v, true
		}
	}
	return v, false
}

// Set routes the value to the first tier whose bound covers its cost.
// Values too large for every tier are dropped.
func (c *TieredCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cost := c.sizer(value)
	for i, bound := range c.bounds {
		if cost <= bound {
			c.caches[i].Set(key, value)
			return
		}
	}
}

// Update replaces the value in whichever tier holds the key. A value
// whose new cost belongs to a different tier stays where it is; only
// eviction moves entries out.
func (c *TieredCache[K, V]) Update(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inner := range c.caches {
		if inner.Update(key, value) {
			return true
		}
	}
	return false
}

// Delete removes key from every tier, returning the first resident
// value found.
func (c *TieredCache[K, V]) Delete(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inner := range c.caches {
		if iv, iok := inner.Delete(key); iok && !ok {
			v, ok = iv, true
		}
	}
	return v, ok
}

// Purge drops all state and statistics in every tier.
func (c *TieredCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inner := range c.caches {
		inner.Purge()
	}
}

// Reset drops all state in every tier but keeps statistics.
func (c *TieredCache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, inner := range c.caches {
		inner.Reset()
	}
}

// Stats merges the counters of all tiers. Each inner snapshot is taken
// under that tier's own lock.
func (c *TieredCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	for _, inner := range c.caches {
		s.Merge(inner.Stats())
	}
	return s
}

// Len returns the total number of resident entries across tiers.
func (c *TieredCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, inner := range c.caches {
		n += inner.Len()
	}
	return n
}

// Size returns the total resident cost across tiers.
func (c *TieredCache[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s int64
	for _, inner := range c.caches {
		s += inner.Size()
	}
	return s
}

// MaxSize returns the summed capacity of all tiers.
func (c *TieredCache[K, V]) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// P returns the summed recency budget across tiers.
func (c *TieredCache[K, V]) P() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var p int64
	for _, inner := range c.caches {
		p += inner.P()
	}
	return p
}

// MaxP returns the largest per-tier high-water mark of p.
func (c *TieredCache[K, V]) MaxP() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var m int64
	for _, inner := range c.caches {
		if mp := inner.MaxP(); mp > m {
			m = mp
		}
	}
	return m
}

// FilterSize returns 0; the dispatcher has no filter of its own.
func (c *TieredCache[K, V]) FilterSize() int64 {
	return 0
}
