package stats_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/boardlab/boardlab/internal/stats"
)

func TestSnapshotEmpty(t *testing.T) {
	a := stats.NewAggregator()
	s := a.Snapshot()
	assert.Zero(t, s.Commands)
	assert.Zero(t, s.Failures)
	assert.Zero(t, s.MeanSeconds)
}

func TestObserveCountsAndTimings(t *testing.T) {
	a := stats.NewAggregator()
	a.Observe(100*time.Millisecond, false)
	a.Observe(200*time.Millisecond, true)
	a.Observe(300*time.Millisecond, false)

	s := a.Snapshot()
	assert.Equal(t, 3, s.Commands)
	assert.Equal(t, 1, s.Failures)
	assert.InDelta(t, 0.2, s.MeanSeconds, 1e-9)
	assert.InDelta(t, 0.1, s.MinSeconds, 1e-9)
	assert.InDelta(t, 0.3, s.MaxSeconds, 1e-9)
	assert.InDelta(t, 0.2, s.P50Seconds, 1e-9)
	assert.Greater(t, s.StdDevSeconds, 0.0)
}

func TestSingleSampleHasZeroSpread(t *testing.T) {
	a := stats.NewAggregator()
	a.Observe(time.Second, false)

	s := a.Snapshot()
	assert.Equal(t, 1, s.Commands)
	assert.InDelta(t, 1.0, s.MeanSeconds, 1e-9)
	assert.Zero(t, s.StdDevSeconds)
	assert.InDelta(t, 1.0, s.P95Seconds, 1e-9)
}

func TestWindowStaysBounded(t *testing.T) {
	a := stats.NewAggregator()
	for i := 0; i < 5000; i++ {
		a.Observe(time.Millisecond, false)
	}
	a.Observe(time.Second, true)

	s := a.Snapshot()
	assert.Equal(t, 5001, s.Commands)
	assert.Equal(t, 1, s.Failures)
	assert.InDelta(t, 1.0, s.MaxSeconds, 1e-9, "newest sample must displace the oldest")
}

func TestConcurrentObserve(t *testing.T) {
	a := stats.NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Observe(10*time.Millisecond, j%2 == 0)
				_ = a.Snapshot()
			}
		}()
	}
	wg.Wait()

	s := a.Snapshot()
	assert.Equal(t, 800, s.Commands)
	assert.Equal(t, 400, s.Failures)
}
