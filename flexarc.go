package arc

import (
	"errors"
	"sync"

	"github.com/go-kit/log"

	"github.com/motoki317/arc/lru"
)

// FlexARC is an ARC variant whose ghost lists are sized independently of
// the resident capacity. Larger ghosts remember evictions further back
// and adapt on patterns a classic ARC has already forgotten; smaller
// ghosts cap the directory memory for huge caches.
//
// Decoupling the ghost bound breaks the directory arithmetic the
// classic cold-miss case relies on, so eviction is a single loop: after
// every admission, evict by the p rule until the residents fit.
type FlexARC[K comparable, V any] struct {
	mu        sync.Locker
	maxSize   int64
	ghostSize int64
	p         int64 // target cost budget for T1; 0 <= p <= maxSize
	maxP      int64

	t1 *lru.Cache[K, V]        // resident, seen once
	t2 *lru.Cache[K, V]        // resident, seen at least twice
	b1 *lru.Cache[K, struct{}] // ghost keys evicted from T1
	b2 *lru.Cache[K, struct{}] // ghost keys evicted from T2

	filter     *lru.Cache[K, struct{}]
	filterSize int64

	sizer lru.Sizer[V]
	stats Stats

	logger log.Logger
	opID   int64
}

var _ Cache[string, string] = (*FlexARC[string, string])(nil)

// NewFlexARC creates a FlexARC with resident capacity size and ghost
// list capacity ghostSize. A ghost capacity of 0 is allowed: the cache
// then degrades to a partitioned LRU that never adapts.
func NewFlexARC[K comparable, V any](size, ghostSize int64, opts ...Option[V]) (*FlexARC[K, V], error) {
	if size <= 0 {
		return nil, errors.New("size needs to be greater than 0")
	}
	if ghostSize < 0 {
		return nil, errors.New("ghost size needs to be non-negative")
	}
	cfg := defaultConfig[V]()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.filterSize < 0 {
		return nil, errors.New("filter size needs to be non-negative")
	}

	c := &FlexARC[K, V]{
		mu:         cfg.lock,
		maxSize:    size,
		ghostSize:  ghostSize,
		t1:         lru.New[K, V](size, lru.WithSizer(cfg.sizer)),
		t2:         lru.New[K, V](size, lru.WithSizer(cfg.sizer)),
		b1:         lru.New[K, struct{}](ghostSize),
		b2:         lru.New[K, struct{}](ghostSize),
		filterSize: cfg.filterSize,
		sizer:      cfg.sizer,
		logger:     cfg.logger,
	}
	if cfg.filterSize > 0 {
		c.filter = lru.New[K, struct{}](cfg.filterSize)
	}
	return c, nil
}

// Get returns the value for key, promoting a T1 hit to T2.
func (c *FlexARC[K, V]) Get(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("get")

	if v, ok := c.t2.Get(key); ok {
		c.stats.Hits++
		c.stats.BytesHit += c.sizer(v)
		c.stats.LFUHits++
		return v, true
	}
	if v, ok := c.t1.Delete(key); ok {
		c.t2.SetNoEvict(key, v)
		c.stats.Hits++
		c.stats.BytesHit += c.sizer(v)
		c.stats.LRUHits++
		return v, true
	}

	c.stats.Misses++
	if c.b1.Contains(key) {
		c.stats.LRUGhostHits++
	}
	if c.b2.Contains(key) {
		c.stats.LFUGhostHits++
	}
	return v, false
}

// Set inserts or replaces the value for key. The case ladder matches the
// classic engine, but every branch ends in the same replace loop; the
// independent ghost bound leaves nothing for the directory-full special
// cases to maintain.
func (c *FlexARC[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("set")

	switch {
	case c.t1.Contains(key):
		c.t1.Delete(key)
		c.t2.SetNoEvict(key, value)
		c.replace(false)

	case c.t2.Contains(key):
		c.t2.SetNoEvict(key, value)
		c.replace(false)

	case c.b1.Contains(key):
		c.adaptLRUGhostHit()
		c.t2.SetNoEvict(key, value)
		c.b1.Delete(key)
		c.replace(false)

	case c.b2.Contains(key):
		c.adaptLFUGhostHit()
		c.t2.SetNoEvict(key, value)
		c.b2.Delete(key)
		c.replace(true)

	default:
		if c.filter != nil {
			if !c.filter.Contains(key) {
				c.stats.Filtered++
				c.filter.Set(key, struct{}{})
				c.replace(false)
				return
			}
			// Second sighting: admitted, and out of the filter so the
			// lists stay disjoint.
			c.filter.Delete(key)
		}
		c.t1.SetNoEvict(key, value)
		c.replace(false)
	}
}

// Update replaces the value for key if it is resident, promoting a T1
// entry to T2. Reports whether the key was found.
func (c *FlexARC[K, V]) Update(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("update")

	if c.t1.Contains(key) {
		c.t1.Delete(key)
		c.t2.SetNoEvict(key, value)
		c.replace(false)
		return true
	}
	if c.t2.Update(key, value) {
		c.replace(false)
		return true
	}
	return false
}

// Delete removes key from every list, resident and ghost. Returns the
// resident value if there was one.
func (c *FlexARC[K, V]) Delete(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("delete")

	if v, ok := c.t1.Delete(key); ok {
		return v, true
	}
	if v, ok := c.t2.Delete(key); ok {
		return v, true
	}
	c.b1.Delete(key)
	c.b2.Delete(key)
	if c.filter != nil {
		c.filter.Delete(key)
	}
	return v, false
}

// SetMaxSize changes the resident capacity. Shrinking clamps p and
// evicts until the residents fit. The ghost capacity is unaffected.
func (c *FlexARC[K, V]) SetMaxSize(size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("set_max_size")

	shrinking := size < c.maxSize
	if c.p > size {
		c.p = size
	}
	c.maxSize = size
	c.t1.SetMaxSize(size)
	c.t2.SetMaxSize(size)
	if shrinking {
		c.replace(false)
	}
}

// Reset drops all cached state but keeps statistics.
func (c *FlexARC[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("reset")
	c.reset()
}

// Purge drops all cached state and zeroes statistics.
func (c *FlexARC[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("purge")

	c.stats.Clear()
	c.reset()
}

func (c *FlexARC[K, V]) reset() {
	c.t1.Reset()
	c.t2.Reset()
	c.b1.Reset()
	c.b2.Reset()
	if c.filter != nil {
		c.filter.Reset()
	}
	c.p = 0
	c.opID = 0
}

// Stats returns a snapshot of the counters since the last Purge.
func (c *FlexARC[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of resident entries.
func (c *FlexARC[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t1.Len() + c.t2.Len()
}

// Size returns the resident cost sum.
func (c *FlexARC[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size()
}

// MaxSize returns the resident capacity.
func (c *FlexARC[K, V]) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// GhostSize returns the ghost list capacity.
func (c *FlexARC[K, V]) GhostSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ghostSize
}

// P returns the current target budget for T1.
func (c *FlexARC[K, V]) P() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.p
}

// MaxP returns the high-water mark of P.
func (c *FlexARC[K, V]) MaxP() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxP
}

// FilterSize returns the admission filter capacity, 0 when disabled.
func (c *FlexARC[K, V]) FilterSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterSize
}

// --- internals, caller must hold c.mu ---

func (c *FlexARC[K, V]) size() int64 {
	return c.t1.Size() + c.t2.Size()
}

func (c *FlexARC[K, V]) adaptLRUGhostHit() {
	delta := int64(1)
	if c.b2.Size() > c.b1.Size() {
		delta = c.b2.Size() / c.b1.Size()
	}
	if c.p+delta >= c.maxSize {
		c.p = c.maxSize
	} else {
		c.p += delta
	}
	if c.p > c.maxP {
		c.maxP = c.p
	}
}

func (c *FlexARC[K, V]) adaptLFUGhostHit() {
	delta := int64(1)
	if c.b1.Size() > c.b2.Size() {
		delta = c.b1.Size() / c.b2.Size()
	}
	if delta >= c.p {
		c.p = 0
	} else {
		c.p -= delta
	}
}

// replace evicts until the residents fit, demoting each victim to its
// ghost list. The branch order matches the single-step protocol: T1
// yields while above the p budget (or at it, for an LFU ghost
// readmission), then T2, then T1 as a last resort.
func (c *FlexARC[K, V]) replace(inLFUGhost bool) {
	for c.size() > c.maxSize {
		t1Size := c.t1.Size()
		switch {
		case t1Size > 0 && (t1Size > c.p || (t1Size == c.p && inLFUGhost)):
			if !c.evictT1() {
				return
			}
		case c.t2.Size() > 0:
			if k, cost, ok := c.t2.DeleteOldest(); ok {
				c.b2.Set(k, struct{}{})
				c.stats.LFUEvicts++
				c.stats.BytesEvicted += cost
			}
		default:
			// Something must go and T2 has nothing to give.
			if !c.evictT1() {
				return
			}
		}
		c.stats.Evicted++
	}
}

func (c *FlexARC[K, V]) evictT1() bool {
	k, cost, ok := c.t1.DeleteOldest()
	if !ok {
		return false
	}
	c.b1.Set(k, struct{}{})
	c.stats.LRUEvicts++
	c.stats.BytesEvicted += cost
	return true
}

func (c *FlexARC[K, V]) trace(op string) {
	if c.logger == nil {
		return
	}
	id := c.opID
	c.opID++
	_ = c.logger.Log(
		"op", op,
		"id", id,
		"p", c.p,
		"t1", c.t1.Size(),
		"t2", c.t2.Size(),
		"b1", c.b1.Size(),
		"b2", c.b2.Size(),
		"filter", c.filterLen(),
	)
}

func (c *FlexARC[K, V]) filterLen() int64 {
	if c.filter == nil {
		return 0
	}
	return c.filter.Size()
}
