// Package otel publishes engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per histogram bucket, all fed by a single callback
// that reads Engine.MetricsSnapshot. Callers own the MeterProvider.
package otel
