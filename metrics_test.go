package mosession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricSessionSaved)
	m.Observe(MetricBeginLatency, time.Millisecond)

	if m.Enabled() {
		t.Fatal("disabled metrics reports enabled")
	}
	if got := m.Value(MetricSessionSaved); got != 0 {
		t.Fatalf("value = %d on disabled metrics", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionSaved)
	m.Observe(MetricBeginLatency, time.Millisecond)
	if m.Enabled() || m.LatencyEnabled() || m.Value(MetricSessionSaved) != 0 {
		t.Fatal("nil metrics misbehaved")
	}
	_ = m.Snapshot()
}

func TestMetricsCountsConcurrently(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Inc(MetricSessionSaved)
				m.Inc(MetricSessionLoaded)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionSaved); got != workers*perWorker {
		t.Fatalf("saved = %d, want %d", got, workers*perWorker)
	}
	if got := m.Value(MetricSessionLoaded); got != workers*perWorker {
		t.Fatalf("loaded = %d, want %d", got, workers*perWorker)
	}
}

func TestLatencyHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	durations := []time.Duration{
		time.Millisecond,        // bucket 0
		8 * time.Millisecond,    // bucket 1
		20 * time.Millisecond,   // bucket 2
		40 * time.Millisecond,   // bucket 3
		80 * time.Millisecond,   // bucket 4
		200 * time.Millisecond,  // bucket 5
		400 * time.Millisecond,  // bucket 6
		2 * time.Second,         // bucket 7
	}
	for _, d := range durations {
		m.Observe(MetricBeginLatency, d)
	}

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricBeginLatency]
	if !ok {
		t.Fatal("latency histogram missing from snapshot")
	}
	for i, count := range buckets {
		if count != 1 {
			t.Fatalf("bucket %d = %d, want 1", i, count)
		}
	}

	// Only the begin-latency id carries a histogram.
	m.Observe(MetricSessionSaved, time.Second)
	snap = m.Snapshot()
	if _, ok := snap.Histograms[MetricSessionSaved]; ok {
		t.Fatal("non-latency id grew a histogram")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionCreated)

	snap := m.Snapshot()
	snap.Counters[MetricSessionCreated] = 999

	if got := m.Value(MetricSessionCreated); got != 1 {
		t.Fatalf("mutating the snapshot reached the live counters: %d", got)
	}
}
