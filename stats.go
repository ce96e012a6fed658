package arc

import "github.com/motoki317/arc/lru"

// Stats is the counter record shared by every cache in this module.
// See lru.Stats for the field documentation.
type Stats = lru.Stats
