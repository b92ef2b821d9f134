// Package metrics is a tiny facade between the pipelines and whatever
// metrics system a deployment uses. The core packages emit through the
// package-level helpers and never import a vendor SDK; backends register via
// SetBackend. The default backend drops everything.
package metrics

import "sync"

// Labels are free-form key/value tags attached to an observation.
type Labels map[string]string

// Backend is implemented by metrics sinks (see metrics/datadog).
type Backend interface {
	// IncCounter adds delta to a named counter. Non-positive deltas are ignored.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits anything buffered. Safe to call at any time.
	Flush() error
}

// Metric names emitted by the pipelines.
const (
	RowsTotal           = "outreach_rows_total"
	StepDurationSeconds = "outreach_step_duration_seconds"
	UploadBytes         = "outreach_upload_bytes"
)

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide sink. Passing nil restores the
// nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush forwards to the installed backend.
func Flush() error { return current().Flush() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
