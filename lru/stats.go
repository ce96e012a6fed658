package lru

import "fmt"

// Stats is the counter record shared by all caches in this module.
// Engines update it under their own lock; Merge folds the records of
// composite caches together.
type Stats struct {
	// Hits is the number of Get calls that found a resident value.
	Hits int64
	// Misses is the number of Get calls that found nothing.
	Misses int64
	// Evicted is the number of entries pushed out to make room.
	Evicted int64
	// BytesHit is the total cost of values served by Get.
	BytesHit int64
	// BytesEvicted is the total cost of evicted values.
	BytesEvicted int64

	// LRUHits and LFUHits split Hits by the list the value was found in.
	LRUHits int64
	LFUHits int64
	// LRUEvicts and LFUEvicts split Evicted by the list the entry left.
	LRUEvicts int64
	LFUEvicts int64
	// LRUGhostHits and LFUGhostHits count misses whose key was still
	// remembered by the corresponding ghost list.
	LRUGhostHits int64
	LFUGhostHits int64

	// Filtered is the number of inserts swallowed by the admission filter.
	Filtered int64
}

// Clear zeroes all counters.
func (s *Stats) Clear() {
	*s = Stats{}
}

// Merge adds the counters of o into s field-wise.
func (s *Stats) Merge(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Evicted += o.Evicted
	s.BytesHit += o.BytesHit
	s.BytesEvicted += o.BytesEvicted
	s.LRUHits += o.LRUHits
	s.LFUHits += o.LFUHits
	s.LRUEvicts += o.LRUEvicts
	s.LFUEvicts += o.LFUEvicts
	s.LRUGhostHits += o.LRUGhostHits
	s.LFUGhostHits += o.LFUGhostHits
	s.Filtered += o.Filtered
}

// HitRatio returns the fraction of Get calls that hit.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String returns formatted string.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Hits: %d, Misses: %d, Evicted: %d, Hit Ratio: %f, LRU/LFU Hits: %d/%d, LRU/LFU Evicts: %d/%d, Ghost Hits: %d/%d, Filtered: %d",
		s.Hits, s.Misses, s.Evicted,
		s.HitRatio(),
		s.LRUHits, s.LFUHits,
		s.LRUEvicts, s.LFUEvicts,
		s.LRUGhostHits, s.LFUGhostHits,
		s.Filtered,
	)
}
