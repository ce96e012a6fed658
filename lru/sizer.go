package lru

import "unsafe"

// Sizer reports the cost of a value in whatever unit the cache is
// budgeted in. Costs must be non-negative. The cache records the cost at
// insertion time and uses the recorded value when the entry leaves.
type Sizer[V any] func(v V) int64

// ElementCount charges every value a cost of one, so the cache bound is
// an entry count. This is the default, and the only sensible sizer for
// ghost and filter caches which carry no values.
func ElementCount[V any]() Sizer[V] {
	return func(V) int64 { return 1 }
}

// StringSizer charges a string value its length in bytes.
func StringSizer(v string) int64 {
	return int64(len(v))
}

// BytesSizer charges a byte slice value its length.
func BytesSizer(v []byte) int64 {
	return int64(len(v))
}

// ValueSize charges every value its fixed in-memory size. Indirect
// storage (pointers, slices, maps) is counted at header size only.
func ValueSize[V any]() Sizer[V] {
	return func(v V) int64 { return int64(unsafe.Sizeof(v)) }
}

// TraceSizer treats an int64 value as its own cost. Workload replays use
// this to carry per-request sizes without materializing real values.
func TraceSizer(v int64) int64 {
	return v
}
