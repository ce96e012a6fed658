package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/motoki317/arc/trace"
)

// workload is one named trace to replay.
type workload struct {
	name  string
	trace trace.Trace
}

// workloadConfig is the TOML shape: a list of [[workload]] tables.
//
//	[[workload]]
//	name  = "zipf-hot"
//	kind  = "zipfian"   # cycle | same-key | zipfian | normal | poisson | file
//	n     = 100000
//	keys  = 20000
//	alpha = 0.7
type workloadConfig struct {
	Workloads []workloadSpec `toml:"workload"`
}

type workloadSpec struct {
	Name   string  `toml:"name"`
	Kind   string  `toml:"kind"`
	N      int64   `toml:"n"`
	Keys   int64   `toml:"keys"`
	Key    string  `toml:"key"`
	Alpha  float64 `toml:"alpha"`
	Mean   float64 `toml:"mean"`
	Stddev float64 `toml:"stddev"`
	Value  int64   `toml:"value"`
	Path   string  `toml:"path"`
	Limit  int64   `toml:"limit"`
}

func loadWorkloads(path string, seed int64) ([]workload, error) {
	var cfg workloadConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Workloads) == 0 {
		return nil, fmt.Errorf("%s defines no workloads", path)
	}

	workloads := make([]workload, 0, len(cfg.Workloads))
	for i, spec := range cfg.Workloads {
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("workload-%d", i)
		}
		if spec.Value == 0 {
			spec.Value = 1
		}
		var tr trace.Trace
		switch spec.Kind {
		case "cycle":
			tr = trace.NewFixed(trace.Cycle(spec.N, spec.Keys, spec.Value))
		case "same-key":
			tr = trace.NewFixed(trace.SameKey(spec.N, spec.Key, spec.Value))
		case "zipfian":
			tr = trace.NewFixed(trace.Zipfian(spec.N, spec.Keys, spec.Alpha, spec.Value, seed))
		case "normal":
			tr = trace.NewFixed(trace.Normal(spec.N, spec.Mean, spec.Stddev, spec.Value, seed))
		case "poisson":
			tr = trace.NewFixed(trace.Poisson(spec.N, spec.Mean, spec.Value, seed))
		case "file":
			reader, err := trace.NewReader(spec.Path, spec.Limit)
			if err != nil {
				return nil, fmt.Errorf("workload %s: %w", spec.Name, err)
			}
			tr = reader
		default:
			return nil, fmt.Errorf("workload %s: unknown kind %q", spec.Name, spec.Kind)
		}
		workloads = append(workloads, workload{name: spec.Name, trace: tr})
	}
	return workloads, nil
}

// defaultSuite is the generated workload mix: straight scans, cycles at
// several working-set ratios, Zipfian hot sets, and scan-after-hot-set
// combinations that punish pure LRU.
func defaultSuite(keys, seed int64) []workload {
	zipfSeq := trace.NewFixed(trace.Zipfian(keys, keys, 0.7, 1, seed))
	zipfSeq.Add(trace.Cycle(keys, keys, 1))
	zipfSeq.Add(trace.Zipfian(keys, keys, 0.7, 1, seed+1))

	tinySeqCycle := trace.NewFixed(trace.Cycle(keys, keys/100, 1))
	tinySeqCycle.Add(trace.Cycle(keys, keys, 1))

	medSeqCycle := trace.NewFixed(trace.Cycle(keys, keys/4, 1))
	medSeqCycle.Add(trace.Cycle(keys, keys, 1))

	return []workload{
		{name: "seq-unique", trace: trace.NewFixed(trace.Cycle(keys, keys, 1))},
		{name: "seq-cycle-10%", trace: trace.NewFixed(trace.Cycle(keys, keys/10, 1))},
		{name: "seq-cycle-50%", trace: trace.NewFixed(trace.Cycle(keys, keys/2, 1))},
		{name: "zipf-1", trace: trace.NewFixed(trace.Zipfian(keys, keys, 1, 1, seed))},
		{name: "zipf-.7", trace: trace.NewFixed(trace.Zipfian(keys, keys, 0.7, 1, seed))},
		{name: "zipf-seq", trace: zipfSeq},
		{name: "tiny-seq-cycle", trace: tinySeqCycle},
		{name: "med-seq-cycle", trace: medSeqCycle},
	}
}
