package table

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSVOptions tune ingestion. Zero value means: ',' separator, edge
// whitespace trimmed, malformed records skipped via OnError.
type ReadCSVOptions struct {
	// Comma is the field separator. 0 means ','.
	Comma rune
	// NoTrim disables trimming of edge whitespace on cells.
	NoTrim bool
	// LazyQuotes is passed through to encoding/csv.
	LazyQuotes bool
	// OnError, when set, receives the 1-based line number and the parse error
	// for each record that had to be skipped. When nil, bad records are
	// silently dropped.
	OnError func(line int, err error)
}

// ReadCSV loads an already-decoded CSV stream into a Table.
//
// The first record is the header row; a UTF-8 BOM on the first header cell is
// stripped. Data records shorter than the header are padded with empty cells,
// longer ones are truncated, so every loaded row is aligned to the headers.
// Encoding and separator detection belong to the caller.
func ReadCSV(ctx context.Context, r io.Reader, name string, opt ReadCSVOptions) (*Table, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opt.LazyQuotes

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return nil, fmt.Errorf("table %s: read header: %w", name, err)
	}
	headers := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = trimBOM(h)
		}
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Name: name, Headers: headers}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			if opt.OnError != nil {
				opt.OnError(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := make([]string, len(headers))
		for i := range headers {
			if i >= len(rec) {
				break
			}
			v := rec[i]
			if !opt.NoTrim {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
}

// WriteCSV writes t as-is, header row first, standard CSV quoting.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEnrichedCSV writes t with a leading canonical_id column followed by
// the original columns in their original order.
//
// ids must be parallel to t.Rows; an empty id renders as the NOT_FOUND token.
// Quoting is standard CSV escaping as done by encoding/csv.
func WriteEnrichedCSV(w io.Writer, t *Table, ids []string) error {
	if len(ids) != len(t.Rows) {
		return fmt.Errorf("table %s: %d ids for %d rows", t.Name, len(ids), len(t.Rows))
	}

	cw := csv.NewWriter(w)

	hdr := append([]string{CanonicalIDColumn}, t.Headers...)
	if err := cw.Write(hdr); err != nil {
		return err
	}

	rec := make([]string, 0, len(hdr))
	for i, row := range t.Rows {
		id := ids[i]
		if id == "" {
			id = NotFound
		}
		rec = rec[:0]
		rec = append(rec, id)
		rec = append(rec, row...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
