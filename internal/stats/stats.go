// Package stats aggregates command timings per target.
package stats

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// maxSamples caps the duration window so long-lived targets keep a bounded
// footprint. Counters keep running totals beyond the window.
const maxSamples = 4096

// Summary is a point-in-time view of one target's command history.
type Summary struct {
	Commands      int     `json:"commands"`
	Failures      int     `json:"failures"`
	MeanSeconds   float64 `json:"mean_seconds"`
	StdDevSeconds float64 `json:"stddev_seconds"`
	P50Seconds    float64 `json:"p50_seconds"`
	P95Seconds    float64 `json:"p95_seconds"`
	MinSeconds    float64 `json:"min_seconds"`
	MaxSeconds    float64 `json:"max_seconds"`
}

// Aggregator records command outcomes. Safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	durations []float64
	next      int
	full      bool
	commands  int
	failures  int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{durations: make([]float64, 0, 64)}
}

// Observe records one command. failed marks non-zero or unknown exits.
func (a *Aggregator) Observe(d time.Duration, failed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commands++
	if failed {
		a.failures++
	}
	sample := d.Seconds()
	if len(a.durations) < maxSamples {
		a.durations = append(a.durations, sample)
		return
	}
	a.full = true
	a.durations[a.next] = sample
	a.next = (a.next + 1) % maxSamples
}

// Snapshot computes summary statistics over the sample window.
func (a *Aggregator) Snapshot() Summary {
	a.mu.Lock()
	samples := append([]float64(nil), a.durations...)
	s := Summary{Commands: a.commands, Failures: a.failures}
	a.mu.Unlock()

	if len(samples) == 0 {
		return s
	}
	sort.Float64s(samples)
	s.MeanSeconds = stat.Mean(samples, nil)
	s.MinSeconds = samples[0]
	s.MaxSeconds = samples[len(samples)-1]
	s.P50Seconds = stat.Quantile(0.5, stat.Empirical, samples, nil)
	s.P95Seconds = stat.Quantile(0.95, stat.Empirical, samples, nil)
	if len(samples) > 1 {
		s.StdDevSeconds = stat.StdDev(samples, nil)
	}
	return s
}
