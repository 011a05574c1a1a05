// Package metrics exposes Prometheus instrumentation for long crawls:
// per-outcome fetch counters and latency histograms, and an optional
// /metrics endpoint served for the duration of a run.
package metrics
