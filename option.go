package arc

import (
	"sync"

	"github.com/go-kit/log"

	"github.com/motoki317/arc/lru"
)

type config[V any] struct {
	filterSize int64
	sizer      lru.Sizer[V]
	lock       sync.Locker
	logger     log.Logger
}

// Option configures an engine. The value type parameter follows the
// cache's because the sizer is typed by it.
type Option[V any] func(*config[V])

func defaultConfig[V any]() config[V] {
	return config[V]{
		sizer: lru.ElementCount[V](),
		lock:  &sync.Mutex{},
	}
}

// WithFilterSize enables the admission filter with the given capacity.
// The filter remembers keys seen exactly once and only admits a key into
// the cache proper on its second appearance, which keeps one-shot scans
// from flushing the resident lists. A size of 0 (the default) disables
// the filter.
func WithFilterSize[V any](size int64) Option[V] {
	return func(c *config[V]) {
		c.filterSize = size
	}
}

// WithSizer sets the cost function for cached values.
// Defaults to lru.ElementCount: capacity bounds the number of entries.
func WithSizer[V any](s lru.Sizer[V]) Option[V] {
	return func(c *config[V]) {
		c.sizer = s
	}
}

// WithLock replaces the engine lock. Defaults to a private sync.Mutex.
// Pass NopLock for single-goroutine use.
func WithLock[V any](l sync.Locker) Option[V] {
	return func(c *config[V]) {
		c.lock = l
	}
}

// WithTraceLogger logs one record per operation with the engine state
// (op, sequence number, p, list sizes). Meant for offline analysis of
// adaptation behavior; the volume makes it unsuitable for production.
func WithTraceLogger[V any](l log.Logger) Option[V] {
	return func(c *config[V]) {
		c.logger = l
	}
}
