package lexicon

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/b33n-tech/club-suite-quest/internal/normalize"
)

// Snapshot format: an ordered JSON array of entities,
// [{"id":"ID001","canonical_name":"Acme","variants":["Acme","ACME"]}, ...].
// Field names and the id prefix are a compatibility contract with external
// consumers; ids are opaque strings on their side.

// MalformedSnapshotError wraps every decode failure so callers can distinguish
// "broken snapshot" from "no snapshot yet". A malformed snapshot must never
// be silently treated as an empty lexicon.
type MalformedSnapshotError struct {
	Source string
	Err    error
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("lexicon: malformed snapshot %s: %v", e.Source, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() error { return e.Err }

// Save writes the snapshot JSON to w: entities in id order, indented for
// human inspection.
func Save(w io.Writer, l *Lexicon) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	ents := l.entities
	if ents == nil {
		ents = []*Entity{}
	}
	return enc.Encode(ents)
}

// Load rebuilds a lexicon from snapshot JSON. source names the origin (file
// path, DSN) for error reporting.
//
// Round-trip guarantee: Load(Save(L)) is observationally equivalent to L
// (same ids, same canonical names, same variant order), and the id counter
// resumes past the highest id seen, so later AddNew calls never collide.
func Load(r io.Reader, source string) (*Lexicon, error) {
	var ents []*Entity
	dec := json.NewDecoder(r)
	if err := dec.Decode(&ents); err != nil {
		return nil, &MalformedSnapshotError{Source: source, Err: err}
	}

	l, err := FromEntities(ents)
	if err != nil {
		return nil, &MalformedSnapshotError{Source: source, Err: err}
	}
	return l, nil
}

// FromEntities rebuilds a lexicon from persisted entities, in order. Used by
// the JSON codec and by the SQL-backed snapshot stores.
func FromEntities(ents []*Entity) (*Lexicon, error) {
	l := New()
	for _, e := range ents {
		if e == nil {
			return nil, fmt.Errorf("null entity entry")
		}
		if err := l.restore(e); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// restore inserts a snapshot entity verbatim and advances the id counter.
func (l *Lexicon) restore(e *Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity with empty id")
	}
	if _, dup := l.byID[e.ID]; dup {
		return fmt.Errorf("duplicate id %s", e.ID)
	}
	if len(e.Variants) == 0 {
		// canonical_name is always a variant; tolerate exports that omit it.
		e.Variants = []string{e.CanonicalName}
	}

	l.entities = append(l.entities, e)
	l.byID[e.ID] = e
	for _, v := range e.Variants {
		n := normalize.Value(v)
		if n == "" {
			continue
		}
		if _, taken := l.byNorm[n]; !taken {
			l.byNorm[n] = e.ID
		}
	}

	if seq, ok := parseID(e.ID); ok && seq >= l.next {
		l.next = seq + 1
	}
	return nil
}

// parseID extracts the numeric counter from an "ID<digits>" identifier.
// Foreign id shapes are tolerated (the counter just does not advance on
// them); minted ids always use the canonical shape.
func parseID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "ID")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
