package trace

import "github.com/cespare/xxhash/v2"

// HashedKey carries a key together with its precomputed xxhash. Replays
// over key types that are expensive to hash repeatedly can key their
// caches by HashedKey instead of the raw string; equality still
// compares the raw key, the hash only rides along.
type HashedKey struct {
	Raw string
	Sum uint64
}

// NewHashedKey hashes s once.
func NewHashedKey(s string) HashedKey {
	return HashedKey{Raw: s, Sum: xxhash.Sum64String(s)}
}
