// Package prometheus provides Prometheus collectors for hardwire metrics.
//
// [NewPrometheusExporter] accepts a [hardwire.Engine] and exposes an [http.Handler]
// that renders all hardwire counters and histograms in Prometheus text exposition format.
// Counter names are prefixed hardwire_*_total; the single histogram is
// hardwire_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
