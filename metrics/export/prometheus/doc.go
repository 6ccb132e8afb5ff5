// Package prometheus provides Prometheus collectors for goRefresh metrics.
//
// [NewPrometheusExporter] accepts an [gorefresh.Engine] and exposes an [http.Handler]
// that renders all goRefresh counters and histograms in Prometheus text exposition format.
// Counter names are prefixed gorefresh_*_total; the single histogram is
// gorefresh_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
