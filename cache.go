package arc

// Cache is the surface shared by the engines in this module. TieredCache
// accepts any implementation as an inner cache, and the benchmark driver
// runs fleets of them interchangeably.
type Cache[K comparable, V any] interface {
	// Get returns the resident value for key, promoting it.
	Get(key K) (V, bool)
	// Set inserts or replaces the value for key, evicting as needed.
	Set(key K, value V)
	// Update replaces the value for key only if it is resident.
	Update(key K, value V) bool
	// Delete removes key everywhere, returning the resident value if any.
	Delete(key K) (V, bool)
	// Purge drops all state and statistics.
	Purge()
	// Reset drops all state but keeps statistics.
	Reset()

	// Stats returns a snapshot of the counters since the last Purge.
	Stats() Stats
	// Len returns the number of resident entries.
	Len() int
	// Size returns the resident cost sum.
	Size() int64
	// MaxSize returns the resident capacity in cost units.
	MaxSize() int64
	// P returns the current target budget for the recency side.
	P() int64
	// MaxP returns the high-water mark of P.
	MaxP() int64
	// FilterSize returns the admission filter capacity, 0 if disabled.
	FilterSize() int64
}
