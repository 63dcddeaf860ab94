// Package metrics is a small, backend-agnostic abstraction for recording
// operational metrics from the pipeline.
//
// It exposes a narrow Backend interface (counters plus duration observations)
// behind a global, pluggable backend that defaults to a no-op, so metric
// calls are always safe even when nothing is configured. The pattern mirrors
// the storage factory: the pipeline depends only on this package while the
// concrete metric systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system implements.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style value in seconds.
	ObserveDuration(name string, seconds float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend keeps metrics optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)      {}
func (nopBackend) ObserveDuration(string, float64, Labels) {}
func (nopBackend) Flush() error                            { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStage measures one pipeline stage execution: latency plus a
// success/failure counter. dataset is empty for whole-run stages like merge.
func RecordStage(stage, dataset string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"stage":   stage,
		"dataset": dataset,
		"status":  status,
	}
	backend.IncCounter("pipeline_stage_total", 1, lbls)
	backend.ObserveDuration("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts record-level outcomes for a dataset.
//
// Typical kinds:
//   - "extracted"
//   - "skipped"
//   - "dropped"
//   - "cleaned"
//   - "merged"
//   - "written"
func RecordRows(dataset, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rows_total", float64(delta), Labels{
		"dataset": dataset,
		"kind":    kind,
	})
}

// RecordBatches counts repository flushes for the load stage.
func RecordBatches(delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_batches_total", float64(delta), nil)
}
