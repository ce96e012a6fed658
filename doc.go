// Package arc provides adaptive replacement caches: fixed-capacity
// in-process caches that balance recency against frequency by watching
// their own eviction history.
//
// Three cache shapes are provided. AdaptiveCache is the classic ARC
// layout: two resident lists (recent and frequent), two ghost lists
// remembering recently evicted keys, and a target split p that adapts on
// ghost hits. FlexARC decouples the ghost list capacity from the
// resident capacity. TieredCache routes values to one of several inner
// caches by cost.
//
// Capacity is measured by a pluggable Sizer, so the same engines bound
// either entry counts or byte budgets. All caches are safe for
// concurrent use; a single lock per engine covers every operation.
package arc
