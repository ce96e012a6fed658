package arc

import (
	"errors"
	"sync"

	"github.com/go-kit/log"

	"github.com/motoki317/arc/lru"
)

// AdaptiveCache is an Adaptive Replacement Cache (ARC).
//
// Four lists share the key space: T1 holds values seen once recently, T2
// holds values seen at least twice, and the ghost lists B1 and B2
// remember keys recently evicted from T1 and T2 without keeping their
// values. A hit in a ghost list is evidence the cache guessed wrong, and
// moves the target budget p toward the side that would have kept the
// key: B1 hits grow the recency side, B2 hits grow the frequency side.
//
// Capacities are in sizer cost units. The ghost lists and the optional
// admission filter always count entries.
type AdaptiveCache[K comparable, V any] struct {
	mu      sync.Locker
	maxSize int64
	p       int64 // target cost budget for T1; 0 <= p <= maxSize
	maxP    int64

	t1 *lru.Cache[K, V]        // resident, seen once
	t2 *lru.Cache[K, V]        // resident, seen at least twice
	b1 *lru.Cache[K, struct{}] // ghost keys evicted from T1
	b2 *lru.Cache[K, struct{}] // ghost keys evicted from T2

	// filter, when non-nil, holds keys seen exactly once that have not
	// yet earned admission.
	filter     *lru.Cache[K, struct{}]
	filterSize int64

	sizer lru.Sizer[V]
	stats Stats

	logger log.Logger
	opID   int64
}

var _ Cache[string, string] = (*AdaptiveCache[string, string])(nil)

// New creates an ARC bounded by size cost units. Ghost lists get the
// same bound.
func New[K comparable, V any](size int64, opts ...Option[V]) (*AdaptiveCache[K, V], error) {
	if size <= 0 {
		return nil, errors.New("size needs to be greater than 0")
	}
	cfg := defaultConfig[V]()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.filterSize < 0 {
		return nil, errors.New("filter size needs to be non-negative")
	}

	c := &AdaptiveCache[K, V]{
		mu:         cfg.lock,
		maxSize:    size,
		t1:         lru.New[K, V](size, lru.WithSizer(cfg.sizer)),
		t2:         lru.New[K, V](size, lru.WithSizer(cfg.sizer)),
		b1:         lru.New[K, struct{}](size),
		b2:         lru.New[K, struct{}](size),
		filterSize: cfg.filterSize,
		sizer:      cfg.sizer,
		logger:     cfg.logger,
	}
	if cfg.filterSize > 0 {
		c.filter = lru.New[K, struct{}](cfg.filterSize)
	}
	return c, nil
}

// Get returns the value for key. A T2 hit refreshes the entry; a T1 hit
// promotes it to T2. On a miss the ghost lists are probed for the
// ghost-hit counters only; adaptation happens on Set.
func (c *AdaptiveCache[K, V]) Get(key K) (v V, ok bool) {
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
		// Second touch: the key graduates to the frequent side. The
		// move keeps the resident cost unchanged, so no eviction is
		// needed.
		c.t2.SetNoEvict(key, v)
		c.stats.Hits++
		c.stats.BytesHit += c.sizer(v)
		c.stats.LRUHits++
		return v, true
	}

	c.stats.Misses++
	// At most one ghost can know the key.
	if c.b1.Contains(key) {
		c.stats.LRUGhostHits++
	}
	if c.b2.Contains(key) {
		c.stats.LFUGhostHits++
	}
	return v, false
}

// Set inserts or replaces the value for key. Where the key currently
// lives decides the path: residents are refreshed or promoted, ghost
// hits first adapt p and reclaim space with replace, and cold keys may
// have to pass the admission filter before entering T1.
func (c *AdaptiveCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("set")

	if c.t1.Contains(key) {
		// Moving T1 -> T2 cannot lose the key, but the new value may
		// cost more than the old; fit afterwards.
		c.t1.Delete(key)
		c.t2.SetNoEvict(key, value)
		c.fit(false)
		return
	}
	if c.t2.Contains(key) {
		c.t2.SetNoEvict(key, value)
		c.fit(true)
		return
	}

	lruGhostHit := c.b1.Contains(key)
	lfuGhostHit := c.b2.Contains(key)

	// The filter only applies to keys evicted long enough ago that no
	// ghost remembers them. First sighting: remember the key and drop
	// the value on the floor, resident and ghost state untouched.
	if !lruGhostHit && !lfuGhostHit && c.filter != nil {
		if !c.filter.Contains(key) {
			c.stats.Filtered++
			c.filter.Set(key, struct{}{})
			return
		}
		// Second sighting: the key earns admission and leaves the
		// filter, keeping the lists disjoint.
		c.filter.Delete(key)
	}

	switch {
	case lruGhostHit:
		// The recency side would have kept this key; grow p.
		c.adaptLRUGhostHit()
		c.replace(false)
		c.t2.SetNoEvict(key, value)
		c.b1.Delete(key)
		c.fit(false)

	case lfuGhostHit:
		// The frequency side would have kept this key; shrink p.
		c.adaptLFUGhostHit()
		c.replace(true)
		c.t2.SetNoEvict(key, value)
		c.b2.Delete(key)
		c.fit(true)

	default:
		lruSize := c.t1.Size() + c.b1.Size()
		totalSize := c.t2.Size() + c.b2.Size() + lruSize
		if lruSize == c.maxSize {
			if c.t1.Size() < c.maxSize {
				c.b1.DeleteOldest()
				c.replace(false)
			} else {
				// T1 fills the whole directory: age its tail straight
				// into B1. replace is deliberately not called on this
				// path.
				if k, cost, ok := c.t1.DeleteOldest(); ok {
					c.b1.Set(k, struct{}{})
					c.stats.LRUEvicts++
					c.stats.Evicted++
					c.stats.BytesEvicted += cost
				}
			}
		} else if lruSize < c.maxSize && totalSize >= c.maxSize {
			if totalSize == 2*c.maxSize {
				c.b2.DeleteOldest()
			}
			c.replace(false)
		}
		if c.size() >= c.maxSize {
			c.replace(false)
		}
		c.t1.SetNoEvict(key, value)
		c.fit(false)
	}
}

// Update replaces the value for key if it is resident, promoting a T1
// entry to T2. Reports whether the key was found. Absent keys are left
// absent; Update never admits.
func (c *AdaptiveCache[K, V]) Update(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("update")

	if c.t1.Contains(key) {
		c.t1.Delete(key)
		c.t2.SetNoEvict(key, value)
		c.fit(false)
		return true
	}
	if c.t2.Update(key, value) {
		c.fit(true)
		return true
	}
	return false
}

// Delete removes key from every list, resident and ghost, so a
// subsequent Set treats it as never seen. Returns the resident value if
// there was one.
func (c *AdaptiveCache[K, V]) Delete(key K) (v V, ok bool) {
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

// SetMaxSize changes the resident capacity. Shrinking clamps p to the
// new capacity and evicts until the residents fit; ghost capacities keep
// their construction-time bound.
func (c *AdaptiveCache[K, V]) SetMaxSize(size int64) {
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
		c.fit(false)
	}
}

// Reset drops all cached state but keeps statistics.
func (c *AdaptiveCache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("reset")
	c.reset()
}

// Purge drops all cached state and zeroes statistics.
func (c *AdaptiveCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace("purge")

	c.stats.Clear()
	c.reset()
}

func (c *AdaptiveCache[K, V]) reset() {
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
func (c *AdaptiveCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of resident entries.
func (c *AdaptiveCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t1.Len() + c.t2.Len()
}

// Size returns the resident cost sum.
func (c *AdaptiveCache[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size()
}

// MaxSize returns the resident capacity.
func (c *AdaptiveCache[K, V]) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// P returns the current target budget for T1.
func (c *AdaptiveCache[K, V]) P() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.p
}

// MaxP returns the high-water mark of P.
func (c *AdaptiveCache[K, V]) MaxP() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxP
}

// FilterSize returns the admission filter capacity, 0 when disabled.
func (c *AdaptiveCache[K, V]) FilterSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterSize
}

// --- internals, caller must hold c.mu ---

func (c *AdaptiveCache[K, V]) size() int64 {
	return c.t1.Size() + c.t2.Size()
}

func (c *AdaptiveCache[K, V]) adaptLRUGhostHit() {
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

func (c *AdaptiveCache[K, V]) adaptLFUGhostHit() {
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

// replace makes room for one entry by demoting a resident to its ghost
// list. T1 gives way while it runs above the p budget; ties go to T2
// unless the incoming key was found in the LFU ghost, in which case T1
// yields at the boundary too.
func (c *AdaptiveCache[K, V]) replace(inLFUGhost bool) {
	t1Size := c.t1.Size()
	if t1Size > 0 && (t1Size > c.p || (t1Size == c.p && inLFUGhost)) {
		c.evictT1()
		return
	}
	if c.t2.Size() > 0 {
		if k, cost, ok := c.t2.DeleteOldest(); ok {
			c.b2.Set(k, struct{}{})
			c.stats.LFUEvicts++
			c.stats.Evicted++
			c.stats.BytesEvicted += cost
		}
		return
	}
	// p has walled off T1 and T2 has nothing to give. Evict from T1
	// anyway when it alone fills the capacity; otherwise there is
	// room and nothing to do.
	if c.t1.Size() >= c.maxSize {
		c.evictT1()
	}
}

func (c *AdaptiveCache[K, V]) evictT1() {
	if k, cost, ok := c.t1.DeleteOldest(); ok {
		c.b1.Set(k, struct{}{})
		c.stats.LRUEvicts++
		c.stats.Evicted++
		c.stats.BytesEvicted += cost
	}
}

// fit evicts until the residents fit the capacity again. Each round
// removes at least one entry, so the loop terminates even for values
// costing more than the whole cache.
func (c *AdaptiveCache[K, V]) fit(inLFUGhost bool) {
	for c.size() > c.maxSize {
		c.replace(inLFUGhost)
	}
}

func (c *AdaptiveCache[K, V]) trace(op string) {
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

func (c *AdaptiveCache[K, V]) filterLen() int64 {
	if c.filter == nil {
		return 0
	}
	return c.filter.Size()
}
