// Package lru implements the cost-aware LRU cache the adaptive engines
// are built from.
//
// The cache pairs a key index with an intrusive access-ordered list: the
// index owns the entries, the list links through them, so lookup,
// promotion and arbitrary removal are all O(1). A Sizer prices each
// value; with the default ElementCount sizer the capacity is an entry
// count, with a byte sizer it is a memory budget. A cache constructed
// over struct{} values and ElementCount doubles as a ghost list: it
// remembers keys, not values.
package lru

import (
	"sync"

	"github.com/motoki317/arc/lru/internal"
)

type config[V any] struct {
	sizer Sizer[V]
	lock  sync.Locker
}

// Option configures a Cache.
type Option[V any] func(*config[V])

// WithSizer sets the cost function for cached values.
// Defaults to ElementCount.
func WithSizer[V any](s Sizer[V]) Option[V] {
	return func(c *config[V]) {
		c.sizer = s
	}
}

// WithLock sets the lock guarding all cache operations. Defaults to a
// no-op lock: the caches inside an engine are already covered by the
// engine's lock, which is the configuration the original four-list
// layout assumes.
func WithLock[V any](l sync.Locker) Option[V] {
	return func(c *config[V]) {
		c.lock = l
	}
}

type nopLock struct{}

func (nopLock) Lock()   {}
func (nopLock) Unlock() {}

// Cache is an LRU cache bounded by total cost rather than entry count.
// The bound may be exceeded transiently between SetNoEvict and the next
// eviction; Set restores it before returning.
type Cache[K comparable, V any] struct {
	mu      sync.Locker
	maxSize int64
	size    int64
	ll      *internal.List[K, V]
	items   map[K]*internal.Entry[K, V]
	sizer   Sizer[V]
	stats   Stats
}

// New creates a cache bounded by maxSize cost units.
func New[K comparable, V any](maxSize int64, opts ...Option[V]) *Cache[K, V] {
	cfg := config[V]{
		sizer: ElementCount[V](),
		lock:  nopLock{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[K, V]{
		mu:      cfg.lock,
		maxSize: maxSize,
		ll:      internal.NewList[K, V](),
		items:   make(map[K]*internal.Entry[K, V]),
		sizer:   cfg.sizer,
	}
}

// Get returns the value for key and promotes it to most recently used.
func (c *Cache[K, V]) Get(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return v, false
	}
	c.stats.Hits++
	c.stats.BytesHit += e.Cost
	c.ll.MoveToFront(e)
	return e.Value, true
}

// Peek returns the value for key without disturbing the access order.
func (c *Cache[K, V]) Peek(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return v, false
	}
	return e.Value, true
}

// Contains reports whether key is resident, and promotes it if so.
// Promotion on a membership probe is deliberate: ghost lists are probed
// with Contains, and a probed ghost should survive longer.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.MoveToFront(e)
	return true
}

// SetNoEvict inserts or replaces the value for key without enforcing the
// cost bound. The caller is expected to restore the bound afterwards,
// typically through the engine's replace protocol.
func (c *Cache[K, V]) SetNoEvict(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setNoEvict(key, v)
}

func (c *Cache[K, V]) setNoEvict(key K, v V) {
	cost := c.sizer(v)
	if e, ok := c.items[key]; ok {
		c.ll.MoveToFront(e)
		c.size += cost - e.Cost
		e.Value = v
		e.Cost = cost
		return
	}
	e := &internal.Entry[K, V]{Key: key, Value: v, Cost: cost}
	c.ll.PushFront(e)
	c.items[key] = e
	c.size += cost
}

// Set inserts or replaces the value for key, then evicts from the tail
// until the cost bound holds again. Returns the total cost evicted.
func (c *Cache[K, V]) Set(key K, v V) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setNoEvict(key, v)
	before := c.size
	for c.size > c.maxSize {
		if _, _, ok := c.deleteOldest(); !ok {
			break
		}
	}
	return before - c.size
}

// Update replaces the value for key if it is resident, adjusting the
// cost sum and promoting the entry. Reports whether key was found.
func (c *Cache[K, V]) Update(key K, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.MoveToFront(e)
	cost := c.sizer(v)
	c.size += cost - e.Cost
	e.Value = v
	e.Cost = cost
	return true
}

// Delete removes key and returns the value it held.
func (c *Cache[K, V]) Delete(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return v, false
	}
	c.ll.Remove(e)
	delete(c.items, key)
	c.size -= e.Cost
	return e.Value, true
}

// DeleteOldest evicts the least recently used entry, returning its key
// and recorded cost. ok is false when the cache is empty.
func (c *Cache[K, V]) DeleteOldest() (key K, cost int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteOldest()
}

func (c *Cache[K, V]) deleteOldest() (key K, cost int64, ok bool) {
	e := c.ll.RemoveBack()
	if e == nil {
		return key, 0, false
	}
	delete(c.items, e.Key)
	c.size -= e.Cost
	c.stats.Evicted++
	c.stats.BytesEvicted += e.Cost
	return e.Key, e.Cost, true
}

// Keys returns the resident keys, most recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.ll.Len())
	for e := c.ll.Front(); e != nil; e = c.ll.Next(e) {
		keys = append(keys, e.Key)
	}
	return keys
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Size returns the current cost sum.
func (c *Cache[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// MaxSize returns the cost bound.
func (c *Cache[K, V]) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSize
}

// SetMaxSize changes the cost bound. The bound is not enforced here;
// the next Set (or the engine's replace protocol) restores it.
func (c *Cache[K, V]) SetMaxSize(maxSize int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
}

// Reset forgets all entries but keeps statistics.
func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[K]*internal.Entry[K, V])
	c.size = 0
}

// Purge forgets all entries and zeroes statistics.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[K]*internal.Entry[K, V])
	c.size = 0
	c.stats.Clear()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
