// Package otel bridges the session lifecycle metrics into an OpenTelemetry
// meter.
//
// [NewOTelExporter] registers observable instruments that pull values from
// a metrics snapshot at collection time, so the request hot path stays
// atomic increments only. Close unregisters the collection callback.
//
// # What this package must NOT do
//
//   - Push metrics on its own schedule — collection is driven by the
//     meter's reader.
//   - Mutate engine state.
package otel
