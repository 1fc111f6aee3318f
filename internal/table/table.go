// Package table defines the in-memory tabular model the resolver core works
// on, plus CSV ingestion and enriched-CSV export.
//
// A Table is immutable once loaded; the matcher never mutates it, it produces
// a parallel canonical-id column that the exporter prepends on write.
package table

import (
	"fmt"
	"strings"
)

// NotFound is the literal token written to the canonical_id column for rows
// whose value could not be resolved to an entity.
const NotFound = "NOT_FOUND"

// CanonicalIDColumn is the header of the derived column prepended on export.
const CanonicalIDColumn = "canonical_id"

// Table is an ordered set of named columns of string cells. Headers are
// stored exactly as they appeared in the source file; matching against them
// downstream is case-insensitive, storage is not.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string // each row aligned to Headers; short rows are padded on load
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of an exact header name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns all cell values of the named column in row order.
// The bool is false when the header does not exist.
func (t *Table) Column(name string) ([]string, bool) {
	ix, ok := t.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[ix]
	}
	return out, true
}

// Cell returns the value at (row, header), or "" when the header is unknown
// or the row index is out of range.
func (t *Table) Cell(row int, name string) string {
	ix, ok := t.ColumnIndex(name)
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][ix]
}

// Validate reports structural problems: no headers, duplicate headers, or a
// row whose width drifted from the header width after load.
func (t *Table) Validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table %s: no headers", t.Name)
	}
	seen := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		if seen[h] {
			return fmt.Errorf("table %s: duplicate header %q", t.Name, h)
		}
		seen[h] = true
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("table %s: row %d has %d cells, want %d", t.Name, i+1, len(row), len(t.Headers))
		}
	}
	return nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
