// Command arc-bench replays workloads against a fleet of caches and
// prints a comparison table. It exists to answer sizing questions: how
// does ARC at 25% of the working set compare to plain LRU, what does a
// bigger ghost list buy, how far is each policy from the Belady
// optimum.
package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/motoki317/arc/trace"
)

var (
	app = kingpin.New("arc-bench", "Cache comparison driver.")

	uniqueKeys = app.Flag("unique-keys", "Number of unique keys in the generated workloads.").
			Default("20000").Int64()
	baseSize = app.Flag("base-size", "Base cache size (accepts suffixes like 64K, 1M). Defaults to unique-keys.").
			String()
	iters = app.Flag("iters", "Number of times to repeat each trace.").
		Default("5").Int()
	traceFile = app.Flag("trace", "Replay a recorded trace file instead of the generated suite.").
			String()
	traceLimit = app.Flag("trace-limit", "How many requests of the trace file to use. 0 means all.").
			Int64()
	configFile = app.Flag("config", "TOML workload file replacing the generated suite.").
			String()
	seed = app.Flag("seed", "Seed for the workload generators.").
		Default("42").Int64()

	minimal = app.Flag("minimal", "Run the small smoke fleet instead of the full sweep.").
		Default("true").Bool()
	includeLRU = app.Flag("include-lru", "Include plain LRU baselines.").
			Default("true").Bool()
	includeBelady = app.Flag("include-belady", "Include the Belady oracle baseline.").
			Bool()
	includeTiered = app.Flag("include-tiered", "Include a tiered cache.").
			Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowInfo())

	size := *uniqueKeys
	if *baseSize != "" {
		parsed, err := humanize.ParseBytes(*baseSize)
		if err != nil {
			kingpin.Fatalf("parsing base size: %v", err)
		}
		size = int64(parsed)
	}
	_ = level.Info(logger).Log("msg", "using base size", "size", humanize.Comma(size))

	var workloads []workload
	switch {
	case *configFile != "":
		var err error
		workloads, err = loadWorkloads(*configFile, *seed)
		if err != nil {
			kingpin.Fatalf("loading workloads: %v", err)
		}
	case *traceFile != "":
		reader, err := trace.NewReader(*traceFile, *traceLimit)
		if err != nil {
			kingpin.Fatalf("opening trace: %v", err)
		}
		defer reader.Close()
		workloads = []workload{{name: *traceFile, trace: reader}}
	default:
		workloads = defaultSuite(*uniqueKeys, *seed)
	}

	fleet, err := buildFleet(size, fleetOptions{
		minimal:       *minimal,
		includeLRU:    *includeLRU,
		includeTiered: *includeTiered,
	})
	if err != nil {
		kingpin.Fatalf("building caches: %v", err)
	}

	table := newResultTable(os.Stdout)
	for _, w := range workloads {
		for _, r := range fleet {
			runOne(logger, table, size, w, r, *iters)
		}
		if *includeBelady {
			runOne(logger, table, size, w, beladyRunner(size, size/4, w.trace), *iters)
		}
	}
	table.Render()
	fmt.Println()
}
