// Package prometheus renders session lifecycle metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [mosession.Engine] and exposes an
// [http.Handler] serving every counter and histogram. Counter names are
// prefixed mosession_*_total; the single histogram is
// mosession_begin_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
