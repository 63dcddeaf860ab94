package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend records calls for assertions.
type fakeBackend struct {
	mu sync.Mutex

	counters  []counterCall
	durations []durationCall
	flushes   int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type durationCall struct {
	name    string
	seconds float64
	labels  Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveDuration(name string, seconds float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, durationCall{name, seconds, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStage(t *testing.T) {
	fb := install(t)

	RecordStage("extract", "patients", nil, 2*time.Second)
	RecordStage("load", "", errors.New("boom"), 500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.durations) != 2 {
		t.Fatalf("calls = %d counters, %d durations", len(fb.counters), len(fb.durations))
	}

	ok := fb.counters[0]
	if ok.name != "pipeline_stage_total" || ok.delta != 1 {
		t.Fatalf("counter[0] = %+v", ok)
	}
	if ok.labels["stage"] != "extract" || ok.labels["dataset"] != "patients" || ok.labels["status"] != "success" {
		t.Fatalf("labels = %v", ok.labels)
	}

	failed := fb.counters[1]
	if failed.labels["status"] != "failure" {
		t.Fatalf("labels = %v", failed.labels)
	}
	if fb.durations[1].seconds != 0.5 {
		t.Fatalf("seconds = %v", fb.durations[1].seconds)
	}
}

func TestRecordRows(t *testing.T) {
	fb := install(t)

	RecordRows("patients", "dropped", 3)
	RecordRows("patients", "dropped", 0)
	RecordRows("patients", "dropped", -1)

	if len(fb.counters) != 1 {
		t.Fatalf("non-positive deltas must be ignored, got %d calls", len(fb.counters))
	}
	c := fb.counters[0]
	if c.name != "pipeline_rows_total" || c.delta != 3 || c.labels["kind"] != "dropped" {
		t.Fatalf("call = %+v", c)
	}
}

func TestSetBackend_NilKeepsCurrent(t *testing.T) {
	fb := install(t)

	SetBackend(nil)
	RecordBatches(1)

	if len(fb.counters) != 1 {
		t.Fatalf("nil SetBackend must keep the installed backend")
	}
}

func TestFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("flushes = %d", fb.flushes)
	}
}
