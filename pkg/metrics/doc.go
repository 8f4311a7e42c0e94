// Package metrics exposes Prometheus counters and histograms around a
// scheduling pass. Nothing in pkg/engine imports this package — the CLI
// harness calls RecordPass after a pass completes, so the pure core stays
// free of metrics concerns and every other caller of pkg/engine is free to
// ignore this package entirely.
package metrics
