// Package datadog implements a Datadog backend for the internal/metrics
// facade.
//
// The backend buffers observations in memory, submits them on a periodic
// ticker, and flushes one final time on Close(). Short-lived commands get a
// single tail submission; anything longer-running gets a real time series.
//
// Concurrency model:
//   - pipeline goroutines call IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush() on a ticker; Close() stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"outreach/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "outreach".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "service:outreach"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; unit tests use
	// them to avoid real network submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK the backend
// needs. The concrete *datadogV2.MetricsApi satisfies it; tests substitute a
// fake to capture payloads.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	rowCounts       map[string]float64   // kind -> count
	durationSamples map[string][]float64 // step -> samples
	uploadBytes     []float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine.
//
// Edge cases:
//   - opts.FlushEvery <= 0 defaults to 60s.
//   - opts.JobName empty defaults to "outreach".
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
//
// Client construction does not hit the network; submission errors surface
// from Flush().
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "outreach"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		rowCounts:       make(map[string]float64),
		durationSamples: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
// Close once; a second Close panics on the already-closed stop channel,
// which matches the usual process-lifetime semantics for a backend.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.RowsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.rowCounts[kind] += delta
	default:
		// Unknown counters are ignored.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepDurationSeconds:
		step := labels["step"]
		if step == "" {
			step = "unknown"
		}
		b.durationSamples[step] = append(b.durationSamples[step], value)
	case metrics.UploadBytes:
		b.uploadBytes = append(b.uploadBytes, value)
	default:
		// Unknown histograms are ignored.
	}
}

type snapshot struct {
	rowCounts       map[string]float64
	durationSamples map[string][]float64
	uploadBytes     []float64
}

func (s snapshot) isEmpty() bool {
	return len(s.rowCounts) == 0 && len(s.durationSamples) == 0 && len(s.uploadBytes) == 0
}

// snapshotAndReset grabs current buffers and installs fresh ones so the hot
// path never blocks on network submission.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		rowCounts:       b.rowCounts,
		durationSamples: b.durationSamples,
		uploadBytes:     b.uploadBytes,
	}
	b.rowCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)
	b.uploadBytes = nil
	return s
}

// Flush submits buffered metrics and resets local buffers.
//
// Buffers reset even when submission fails; delivery is best-effort so the
// pipeline never stalls behind the metrics path.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs the Datadog series for a snapshot at a fixed
// timestamp. Pure: no locks, no network, no clocks — and therefore testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	count := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}
	gauge := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.rowCounts)+len(s.durationSamples)*3+1)

	for _, kind := range sortedKeys(s.rowCounts) {
		if s.rowCounts[kind] == 0 {
			continue
		}
		tags := withTags(b.baseTags, "kind:"+kind)
		series = append(series, count("outreach.rows.total", s.rowCounts[kind], tags))
	}

	for _, step := range sortedKeys(s.durationSamples) {
		samples := s.durationSamples[step]
		if len(samples) == 0 {
			continue
		}
		p50, p95, max := percentiles(samples)
		tags := withTags(b.baseTags, "step:"+step)
		series = append(series,
			gauge("outreach.step.duration_seconds.p50", p50, tags),
			gauge("outreach.step.duration_seconds.p95", p95, tags),
			gauge("outreach.step.duration_seconds.max", max, tags),
		)
	}

	if len(s.uploadBytes) > 0 {
		var total float64
		for _, v := range s.uploadBytes {
			total += v
		}
		series = append(series, count("outreach.upload.bytes", total, b.baseTags))
	}

	return series
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}

// percentiles returns (p50, p95, max) of samples using nearest-rank on a
// sorted copy. Caller guarantees len(samples) > 0.
func percentiles(samples []float64) (p50, p95, max float64) {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	rank := func(p float64) float64 {
		ix := int(p*float64(len(sorted))+0.5) - 1
		if ix < 0 {
			ix = 0
		}
		if ix >= len(sorted) {
			ix = len(sorted) - 1
		}
		return sorted[ix]
	}
	return rank(0.50), rank(0.95), sorted[len(sorted)-1]
}

// ParseTagsCSV splits a comma-separated tag list, trimming whitespace and
// dropping empties. Used for METRICS_TAGS-style environment input.
func ParseTagsCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
