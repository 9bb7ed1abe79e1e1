package mosession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one lifecycle counter or histogram.
type MetricID uint16

const (
	// MetricSessionCreated counts fresh sessions handed out by Begin.
	MetricSessionCreated MetricID = iota
	// MetricSessionLoaded counts sessions resolved from the backend.
	MetricSessionLoaded
	// MetricSessionMissing counts tokens that matched no live record.
	MetricSessionMissing
	// MetricCorruptPayload counts records discarded as undecodable.
	MetricCorruptPayload
	// MetricSessionSaved counts backend writes from End.
	MetricSessionSaved
	// MetricSessionTouched counts expiry refreshes of unmutated sessions.
	MetricSessionTouched
	// MetricSessionDiscarded counts sessions that ended clean with no write.
	MetricSessionDiscarded
	// MetricSessionDestroyed counts Destroy calls that removed a record.
	MetricSessionDestroyed
	// MetricSessionRegenerated counts successful identifier swaps.
	MetricSessionRegenerated
	// MetricIdentifierCollision counts fresh identifiers that hit a live
	// record.
	MetricIdentifierCollision
	// MetricStoreUnavailable counts backend operations that failed with
	// store.ErrUnavailable.
	MetricStoreUnavailable
	// MetricBeginLatency is the Begin duration histogram.
	MetricBeginLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// paddedCounter keeps each hot counter on its own cache line so concurrent
// increments of different metrics do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free lifecycle counters plus an optional
// Begin-latency histogram. A disabled Metrics is a no-op on every path.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram,
// consumed by the exporters in metrics/export.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics set from cfg. Latency histograms require
// metrics to be enabled too.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the Begin-latency histogram is being
// recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter id. Safe on a nil or disabled receiver.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram id. Only MetricBeginLatency carries
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricBeginLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a consistent-enough copy of all counters: each value is
// read atomically, the set as a whole is not fenced.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricBeginLatency].buckets[i])
		}
		s.Histograms[MetricBeginLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
