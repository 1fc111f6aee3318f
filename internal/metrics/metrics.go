// Package metrics defines the minimal backend interface the resolver
// pipeline emits run metrics through. The core depends only on Backend;
// concrete backends (datadog, nop) live in subpackages or here.
package metrics

// Labels are free-form metric dimensions (e.g. {"table": "matches"}).
type Labels map[string]string

// Backend receives pipeline metrics. Implementations buffer internally and
// submit on Flush/Close.
type Backend interface {
	// IncCounter adds delta to a named counter. Unknown names are ignored
	// by backends.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits buffered metrics.
	Flush() error
	// Close flushes one final time and releases resources. Call once.
	Close() error
}

// Metric names emitted by the pipeline.
const (
	RowsTotal           = "resolver_rows_total"            // labels: table
	EntitiesMintedTotal = "resolver_entities_minted_total" // labels: table
	VariantsMergedTotal = "resolver_variants_merged_total" // labels: table
	NoticesTotal        = "resolver_notices_total"         // labels: kind
	RunDurationSeconds  = "resolver_run_duration_seconds"  // no labels
)

// Nop discards everything. Used when no metrics backend is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
