package metrics

import "testing"

type recordingBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
	}
}

func (r *recordingBackend) IncCounter(name string, delta float64, _ Labels) {
	r.counters[name] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, _ Labels) {
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *recordingBackend) Flush() error {
	r.flushed++
	return nil
}

func TestDefaultBackendDropsEverything(t *testing.T) {
	SetBackend(nil)
	IncCounter(RowsTotal, 5, nil)
	ObserveHistogram(StepDurationSeconds, 0.25, nil)
	if err := Flush(); err != nil {
		t.Fatalf("nop flush: %v", err)
	}
}

func TestSetBackendRoutesObservations(t *testing.T) {
	rec := newRecordingBackend()
	SetBackend(rec)
	defer SetBackend(nil)

	IncCounter(RowsTotal, 3, Labels{"kind": "input"})
	IncCounter(RowsTotal, 2, Labels{"kind": "input"})
	ObserveHistogram(StepDurationSeconds, 1.5, Labels{"step": "filter"})
	if err := Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := rec.counters[RowsTotal]; got != 5 {
		t.Fatalf("counter = %v, want 5", got)
	}
	if got := rec.histograms[StepDurationSeconds]; len(got) != 1 || got[0] != 1.5 {
		t.Fatalf("histogram samples = %v", got)
	}
	if rec.flushed != 1 {
		t.Fatalf("flushed %d times, want 1", rec.flushed)
	}
}

func TestSetBackendNilRestoresNop(t *testing.T) {
	rec := newRecordingBackend()
	SetBackend(rec)
	SetBackend(nil)

	IncCounter(RowsTotal, 1, nil)
	if got := rec.counters[RowsTotal]; got != 0 {
		t.Fatalf("old backend still receiving: %v", got)
	}
}
