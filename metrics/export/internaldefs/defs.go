package internaldefs

import (
	mosession "github.com/bayazee/mosession"
)

// CounterDef binds a lifecycle counter to its exported name.
type CounterDef struct {
	ID   mosession.MetricID
	Name string
	Help string
}

// HistogramDef binds a lifecycle histogram to its exported name.
type HistogramDef struct {
	ID   mosession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: mosession.MetricSessionCreated, Name: "mosession_session_created_total", Help: "Fresh sessions handed out at request start."},
	{ID: mosession.MetricSessionLoaded, Name: "mosession_session_loaded_total", Help: "Sessions resolved from the backend."},
	{ID: mosession.MetricSessionMissing, Name: "mosession_session_missing_total", Help: "Tokens that matched no live record."},
	{ID: mosession.MetricCorruptPayload, Name: "mosession_corrupt_payload_total", Help: "Records discarded as undecodable."},
	{ID: mosession.MetricSessionSaved, Name: "mosession_session_saved_total", Help: "Backend writes at request end."},
	{ID: mosession.MetricSessionTouched, Name: "mosession_session_touched_total", Help: "Expiry refreshes of unmutated sessions."},
	{ID: mosession.MetricSessionDiscarded, Name: "mosession_session_discarded_total", Help: "Sessions that ended clean with no write."},
	{ID: mosession.MetricSessionDestroyed, Name: "mosession_session_destroyed_total", Help: "Destroyed sessions."},
	{ID: mosession.MetricSessionRegenerated, Name: "mosession_session_regenerated_total", Help: "Successful identifier regenerations."},
	{ID: mosession.MetricIdentifierCollision, Name: "mosession_identifier_collision_total", Help: "Fresh identifiers that collided with live records."},
	{ID: mosession.MetricStoreUnavailable, Name: "mosession_store_unavailable_total", Help: "Backend operations that failed as unavailable."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: mosession.MetricBeginLatency, Name: "mosession_begin_latency_seconds", Help: "Begin latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, Prometheus style.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or trims a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
