package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"

	"github.com/motoki317/arc"
	"github.com/motoki317/arc/belady"
	"github.com/motoki317/arc/lru"
	"github.com/motoki317/arc/trace"
)

var lockKind = app.Flag("lock", "Engine lock to benchmark under.").
	Default("nop").Enum("nop", "mutex", "spin")

// cache is what the driver needs from a contestant. All engines in the
// module satisfy it directly; the plain LRU baseline is adapted.
type cache interface {
	Get(key string) (int64, bool)
	Set(key string, value int64)
	Reset()
	Purge()
	Stats() arc.Stats
	MaxSize() int64
	P() int64
	MaxP() int64
	FilterSize() int64
}

// runner is one labeled contestant. plain marks caches with no
// adaptation state, which print "-" in the p columns.
type runner struct {
	label string
	plain bool
	cache cache
}

type fleetOptions struct {
	minimal       bool
	includeLRU    bool
	includeTiered bool
}

func engineLock() sync.Locker {
	switch *lockKind {
	case "mutex":
		return &sync.Mutex{}
	case "spin":
		return &arc.SpinLock{}
	default:
		return arc.NopLock{}
	}
}

func engineOpts(filterSize int64) []arc.Option[int64] {
	opts := []arc.Option[int64]{
		arc.WithSizer(lru.Sizer[int64](lru.TraceSizer)),
		arc.WithLock[int64](engineLock()),
	}
	if filterSize > 0 {
		opts = append(opts, arc.WithFilterSize[int64](filterSize))
	}
	return opts
}

func pct(part, whole int64) int64 {
	return part * 100 / whole
}

func arcRunner(baseSize, size, filterSize int64) (runner, error) {
	c, err := arc.New[string, int64](size, engineOpts(filterSize)...)
	if err != nil {
		return runner{}, err
	}
	label := fmt.Sprintf("arc-%d", pct(size, baseSize))
	if filterSize > 0 {
		label += "-filter"
	}
	return runner{label: label, cache: c}, nil
}

func farcRunner(baseSize, size, ghostSize int64) (runner, error) {
	c, err := arc.NewFlexARC[string, int64](size, ghostSize, engineOpts(0)...)
	if err != nil {
		return runner{}, err
	}
	label := fmt.Sprintf("farc-%d-%d", pct(size, baseSize), pct(ghostSize, size))
	return runner{label: label, cache: c}, nil
}

// lruRunner adapts the module's sized LRU as the no-adaptation baseline.
type lruCache struct {
	*lru.Cache[string, int64]
}

func (l lruCache) Set(key string, value int64) { l.Cache.Set(key, value) }
func (l lruCache) P() int64                    { return 0 }
func (l lruCache) MaxP() int64                 { return 0 }
func (l lruCache) FilterSize() int64           { return 0 }

func lruRunner(baseSize, size int64) runner {
	c := lru.New[string, int64](size,
		lru.WithSizer(lru.Sizer[int64](lru.TraceSizer)),
		lru.WithLock[int64](engineLock()),
	)
	return runner{
		label: fmt.Sprintf("lru-%d", pct(size, baseSize)),
		plain: true,
		cache: lruCache{c},
	}
}

func beladyRunner(baseSize, size int64, tr trace.Trace) runner {
	return runner{
		label: fmt.Sprintf("belady-%d", pct(size, baseSize)),
		plain: true,
		cache: belady.New[int64](size, tr),
	}
}

func tieredRunner(baseSize int64) (runner, error) {
	inner, err := arc.New[string, int64](baseSize/4, engineOpts(0)...)
	if err != nil {
		return runner{}, err
	}
	t := arc.NewTiered[string, int64](
		arc.WithSizer(lru.Sizer[int64](lru.TraceSizer)),
		arc.WithLock[int64](engineLock()),
	)
	if err := t.AddCache(10, inner); err != nil {
		return runner{}, err
	}
	return runner{label: fmt.Sprintf("tiered-%d", pct(baseSize/4, baseSize)), cache: t}, nil
}

func buildFleet(baseSize int64, opts fleetOptions) ([]runner, error) {
	var fleet []runner
	add := func(r runner, err error) error {
		if err != nil {
			return err
		}
		fleet = append(fleet, r)
		return nil
	}

	if opts.minimal {
		if err := add(arcRunner(baseSize, baseSize/4, 0)); err != nil {
			return nil, err
		}
		if err := add(arcRunner(baseSize, baseSize/4, baseSize/2)); err != nil {
			return nil, err
		}
		if err := add(farcRunner(baseSize, baseSize/4, baseSize)); err != nil {
			return nil, err
		}
		if opts.includeLRU {
			fleet = append(fleet, lruRunner(baseSize, baseSize/4))
		}
	} else {
		cacheSizes := []float64{.05, .1, .5, 1.0}
		ghostSizes := []float64{.5, 1.0, 2.0, 3.0}
		for _, sz := range cacheSizes {
			size := int64(float64(baseSize) * sz)
			if err := add(arcRunner(baseSize, size, 0)); err != nil {
				return nil, err
			}
			if opts.includeLRU {
				fleet = append(fleet, lruRunner(baseSize, size))
			}
			for _, gs := range ghostSizes {
				if err := add(farcRunner(baseSize, size, int64(float64(size)*gs))); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.includeTiered {
		if err := add(tieredRunner(baseSize)); err != nil {
			return nil, err
		}
	}
	return fleet, nil
}

func newResultTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"trace", "cache", "hits", "misses", "evicts", "p", "max_p",
		"hit %", "LRU %", "LFU %", "miss %",
		"LRU ghost %", "LFU ghost %", "filters", "micros/val",
	})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	align := make([]int, 15)
	for i := range align {
		align[i] = tablewriter.ALIGN_RIGHT
	}
	align[0], align[1] = tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT
	table.SetColumnAlignment(align)
	table.SetBorder(false)
	return table
}

func runOne(logger log.Logger, table *tablewriter.Table, baseSize int64, w workload, r runner, iters int) {
	_ = level.Info(logger).Log("msg", "testing cache", "cache", r.label, "trace", w.name)

	r.cache.Purge()

	var totalVals int64
	var elapsed time.Duration
	for i := 0; i < iters; i++ {
		w.trace.Reset()
		r.cache.Reset()
		start := time.Now()
		for req := w.trace.Next(); req != nil; req = w.trace.Next() {
			totalVals++
			if _, ok := r.cache.Get(req.Key); !ok {
				r.cache.Set(req.Key, req.Value)
			}
		}
		elapsed += time.Since(start)
	}
	_ = level.Info(logger).Log("msg", "completed", "cache", r.label, "trace", w.name, "took", elapsed)

	stats := r.cache.Stats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		total = 1
	}

	dash := "-"
	num := func(n int64) string { return fmt.Sprintf("%d", n) }
	adaptive := func(n int64) string {
		if r.plain {
			return dash
		}
		return num(n)
	}
	share := func(part, whole int64) string {
		if r.plain || whole == 0 {
			return dash
		}
		return num(part * 100 / whole)
	}
	filters := dash
	if stats.Filtered > 0 {
		filters = num(stats.Filtered)
	}

	table.Append([]string{
		w.name,
		r.label,
		num(stats.Hits),
		num(stats.Misses),
		num(stats.Evicted),
		adaptive(r.cache.P()),
		adaptive(r.cache.MaxP()),
		num(stats.Hits * 100 / total),
		share(stats.LRUHits, stats.Hits),
		share(stats.LFUHits, stats.Hits),
		num(stats.Misses * 100 / total),
		share(stats.LRUGhostHits, stats.Misses),
		share(stats.LFUGhostHits, stats.Misses),
		filters,
		fmt.Sprintf("%.6f", float64(elapsed.Microseconds())/float64(totalVals)),
	})
}
