// Package datadog implements a Datadog backend for internal/metrics.
//
// Metrics are buffered in memory, flushed on a ticker while a long run is in
// progress, and flushed one final time on Close so short one-shot report
// generations still land in Datadog.
//
// Concurrency model: pipeline code calls IncCounter/ObserveHistogram at any
// time; Flush snapshots and resets the buffers under a mutex, then submits
// out of the lock.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/b33n-tech/club-suite-quest/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options configures the backend.
type Options struct {
	// JobName becomes tag "job:<name>"; defaults to "kpigen".
	JobName string
	// Tags are extra Datadog tags (e.g. "env:prod").
	Tags []string
	// FlushEvery controls periodic submission; <= 0 means 60s.
	FlushEvery time.Duration

	// Test seams, unexported: production never sets them.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter lets tests stub the concrete *datadogV2.MetricsApi
// without real HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	now       func() time.Time
	submitter metricsSubmitter
	baseTags  []string

	mu           sync.Mutex
	rowCounts    map[string]float64 // keyed by table name
	mintCounts   map[string]float64
	mergeCounts  map[string]float64
	noticeCounts map[string]float64 // keyed by notice kind
	runDur       []float64          // seconds

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend builds a Backend and starts its periodic flush loop. Credentials
// come from the standard DD_API_KEY / DD_APP_KEY environment variables used
// by the Datadog client.
func NewBackend(opts Options) *Backend {
	if opts.JobName == "" {
		opts.JobName = "kpigen"
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 60 * time.Second
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.newTicker == nil {
		opts.newTicker = time.NewTicker
	}
	sub := opts.submitter
	if sub == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		sub = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		now:          opts.now,
		submitter:    sub,
		baseTags:     baseTags(opts),
		rowCounts:    map[string]float64{},
		mintCounts:   map[string]float64{},
		mergeCounts:  map[string]float64{},
		noticeCounts: map[string]float64{},
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	go b.loop(opts.newTicker(opts.FlushEvery))
	return b
}

func baseTags(opts Options) []string {
	tags := []string{"job:" + opts.JobName}
	if env := os.Getenv("DD_ENV"); env != "" {
		tags = append(tags, "env:"+env)
	}
	tags = append(tags, opts.Tags...)
	return tags
}

func (b *Backend) loop(t *time.Ticker) {
	defer close(b.doneCh)
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

// IncCounter adds delta to a buffered counter. Names outside the pipeline's
// metric set are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch name {
	case metrics.RowsTotal:
		b.rowCounts[labels["table"]] += delta
	case metrics.EntitiesMintedTotal:
		b.mintCounts[labels["table"]] += delta
	case metrics.VariantsMergedTotal:
		b.mergeCounts[labels["table"]] += delta
	case metrics.NoticesTotal:
		b.noticeCounts[labels["kind"]] += delta
	}
}

// ObserveHistogram records a sample. Only the run duration distribution is
// tracked; other names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, _ metrics.Labels) {
	if name != metrics.RunDurationSeconds {
		return
	}
	b.mu.Lock()
	b.runDur = append(b.runDur, value)
	b.mu.Unlock()
}

type snapshot struct {
	rows    map[string]float64
	mints   map[string]float64
	merges  map[string]float64
	notices map[string]float64
	runDur  []float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := snapshot{
		rows:    b.rowCounts,
		mints:   b.mintCounts,
		merges:  b.mergeCounts,
		notices: b.noticeCounts,
		runDur:  b.runDur,
	}
	b.rowCounts = map[string]float64{}
	b.mintCounts = map[string]float64{}
	b.mergeCounts = map[string]float64{}
	b.noticeCounts = map[string]float64{}
	b.runDur = nil
	return s
}

func (s snapshot) empty() bool {
	return len(s.rows) == 0 && len(s.mints) == 0 && len(s.merges) == 0 &&
		len(s.notices) == 0 && len(s.runDur) == 0
}

// Flush submits everything buffered since the previous flush. Buffers are
// reset even if submission fails; a run's metrics are best effort.
func (b *Backend) Flush() error {
	s := b.snapshotAndReset()
	if s.empty() {
		return nil
	}
	series := b.buildSeries(s, b.now().Unix())
	ctx, cancel := context.WithTimeout(dd.NewDefaultContext(context.Background()), 30*time.Second)
	defer cancel()
	_, _, err := b.submitter.SubmitMetrics(ctx, datadogV2.MetricPayload{Series: series})
	return err
}

// Close stops the flush loop and submits any remaining buffered metrics.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) buildSeries(s snapshot, ts int64) []datadogV2.MetricSeries {
	var series []datadogV2.MetricSeries
	series = append(series, b.countSeries(metrics.RowsTotal, "table", s.rows, ts)...)
	series = append(series, b.countSeries(metrics.EntitiesMintedTotal, "table", s.mints, ts)...)
	series = append(series, b.countSeries(metrics.VariantsMergedTotal, "table", s.merges, ts)...)
	series = append(series, b.countSeries(metrics.NoticesTotal, "kind", s.notices, ts)...)

	if len(s.runDur) > 0 {
		sorted := append([]float64(nil), s.runDur...)
		sort.Float64s(sorted)
		series = append(series,
			b.gaugeSeries(metrics.RunDurationSeconds+".p50", percentileNearestRank(sorted, 50), ts),
			b.gaugeSeries(metrics.RunDurationSeconds+".p95", percentileNearestRank(sorted, 95), ts),
			b.gaugeSeries(metrics.RunDurationSeconds+".max", sorted[len(sorted)-1], ts),
			b.gaugeSeries(metrics.RunDurationSeconds+".samples", float64(len(sorted)), ts),
		)
	}
	return series
}

func (b *Backend) countSeries(name, labelKey string, counts map[string]float64, ts int64) []datadogV2.MetricSeries {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]datadogV2.MetricSeries, 0, len(keys))
	for _, k := range keys {
		tags := append([]string(nil), b.baseTags...)
		if k != "" {
			tags = append(tags, labelKey+":"+k)
		}
		out = append(out, datadogV2.MetricSeries{
			Metric: name,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{{
				Timestamp: dd.PtrInt64(ts),
				Value:     dd.PtrFloat64(counts[k]),
			}},
			Tags: tags,
		})
	}
	return out
}

func (b *Backend) gaugeSeries(name string, value float64, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: name,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{{
			Timestamp: dd.PtrInt64(ts),
			Value:     dd.PtrFloat64(value),
		}},
		Tags: append([]string(nil), b.baseTags...),
	}
}

// percentileNearestRank expects sorted input and p in (0, 100].
func percentileNearestRank(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// ParseTagsCSV splits a comma-separated tag list, trimming whitespace and
// dropping empty entries. Used by CLI flag parsing.
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
