// Package prometheus publishes engine metrics through client_golang.
//
// [Collector] reads Engine.MetricsSnapshot on every scrape and emits const
// counters (goaccount_*_total) and histograms (goaccount_*_seconds).
// Register it on any registry, or use [Handler] for a ready /metrics
// endpoint with its own registry.
package prometheus
