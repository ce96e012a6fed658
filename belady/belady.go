// Package belady implements a clairvoyant cache for benchmarking.
//
// The cache is constructed from the exact trace that will be replayed
// against it and, on pressure, evicts the resident key whose next access
// lies furthest in the future. No real policy can beat it, which makes
// its hit rate the ceiling to compare the adaptive engines against.
package belady

import (
	"container/heap"
	"fmt"

	"github.com/motoki317/arc/lru"
	"github.com/motoki317/arc/trace"
)

// accessHistory is the precomputed logical access order of one key.
type accessHistory struct {
	order []int64
	idx   int
}

// Cache is the oracle. It only works in lockstep with its trace: every
// request must be offered exactly once via Get, and Set may only be
// called for the request Get just missed.
type Cache[V any] struct {
	maxSize int64
	cache   map[string]V
	stats   lru.Stats

	accessByKey map[string]*accessHistory

	// farthest maps a key's next access time to the key, for residents
	// that will be accessed again. times orders those access times as a
	// max-heap with lazy deletion, so the furthest access is always on
	// top.
	farthest map[int64]string
	times    timeHeap

	// unused holds residents that never appear in the trace again;
	// they are evicted before anything in farthest.
	unused map[string]struct{}
}

// New indexes the trace and returns an oracle of the given capacity.
// The trace is rewound before and after indexing.
func New[V any](size int64, tr trace.Trace) *Cache[V] {
	c := &Cache[V]{
		maxSize:     size,
		accessByKey: make(map[string]*accessHistory),
	}

	tr.Reset()
	var t int64
	for r := tr.Next(); r != nil; r = tr.Next() {
		h, ok := c.accessByKey[r.Key]
		if !ok {
			h = &accessHistory{}
			c.accessByKey[r.Key] = h
		}
		h.order = append(h.order, t)
		t++
	}
	tr.Reset()

	c.Reset()
	return c
}

// Get consumes the key's next scheduled access and returns the resident
// value, if any. Accessing a key that is not part of the trace (or more
// often than the trace holds) is a programmer error.
func (c *Cache[V]) Get(key string) (v V, ok bool) {
	history, ok := c.accessByKey[key]
	if !ok || history.idx >= len(history.order) {
		panic(fmt.Sprintf("belady: access to %q not in trace", key))
	}
	t := history.order[history.idx]
	history.idx++

	v, ok = c.cache[key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.updateEvictionOrder(key, t, history)
	return v, ok
}

// Set caches the value Get just missed, evicting the optimal victim if
// the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	if int64(len(c.cache)) >= c.maxSize {
		c.stats.Evicted++
		c.evict()
	}
	c.cache[key] = value

	history := c.accessByKey[key]
	if history != nil && history.idx < len(history.order) {
		t := history.order[history.idx]
		c.farthest[t] = key
		heap.Push(&c.times, t)
	} else {
		c.unused[key] = struct{}{}
	}
}

// Reset rewinds the oracle to the beginning of its trace, keeping
// statistics. The replay must be rewound in the same way.
func (c *Cache[V]) Reset() {
	c.cache = make(map[string]V)
	c.farthest = make(map[int64]string)
	c.times = c.times[:0]
	c.unused = make(map[string]struct{})
	for _, h := range c.accessByKey {
		h.idx = 0
	}
}

// Purge rewinds the oracle and zeroes statistics.
func (c *Cache[V]) Purge() {
	c.stats.Clear()
	c.Reset()
}

// Stats returns a snapshot of the counters since the last Purge.
func (c *Cache[V]) Stats() lru.Stats {
	return c.stats
}

// Len returns the number of resident entries.
func (c *Cache[V]) Len() int {
	return len(c.cache)
}

// Size returns the number of resident entries; the oracle only counts
// elements.
func (c *Cache[V]) Size() int64 {
	return int64(len(c.cache))
}

// MaxSize returns the capacity.
func (c *Cache[V]) MaxSize() int64 {
	return c.maxSize
}

// P returns 0; the oracle has no adaptation target.
func (c *Cache[V]) P() int64 { return 0 }

// MaxP returns 0.
func (c *Cache[V]) MaxP() int64 { return 0 }

// FilterSize returns 0.
func (c *Cache[V]) FilterSize() int64 { return 0 }

// evict removes the optimal victim: a key that is never used again if
// one exists, otherwise the resident with the furthest next access.
func (c *Cache[V]) evict() {
	for key := range c.unused {
		delete(c.unused, key)
		delete(c.cache, key)
		return
	}

	for len(c.times) > 0 {
		t := c.times[0]
		key, ok := c.farthest[t]
		if !ok {
			// Stale heap entry for an access already consumed.
			heap.Pop(&c.times)
			continue
		}
		heap.Pop(&c.times)
		delete(c.farthest, t)
		delete(c.cache, key)
		return
	}
	panic("belady: nothing to evict")
}

// updateEvictionOrder retires the access that was just consumed and, if
// the key is resident, schedules its next one.
func (c *Cache[V]) updateEvictionOrder(key string, t int64, history *accessHistory) {
	if _, ok := c.farthest[t]; !ok {
		return
	}
	delete(c.farthest, t)
	if history.idx < len(history.order) {
		next := history.order[history.idx]
		c.farthest[next] = key
		heap.Push(&c.times, next)
	} else {
		c.unused[key] = struct{}{}
	}
}

// timeHeap is a max-heap of access times.
type timeHeap []int64

func (h timeHeap) Len() int            { return len(h) }
func (h timeHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h timeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeHeap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *timeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
