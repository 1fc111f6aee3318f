// Package lexicon implements the persistent registry of distinct entities:
// canonical ids, canonical display names, and the textual variants observed
// for each entity across uploads.
//
// A Lexicon is not safe for concurrent mutation; one update pass runs at a
// time and callers serialize access (single-writer on the snapshot).
package lexicon

import (
	"fmt"

	"github.com/b33n-tech/club-suite-quest/internal/normalize"
)

// Entity is one distinct real-world entity.
type Entity struct {
	// ID is the stable canonical identifier, "ID" + zero-padded counter
	// ("ID001"). Consumers must treat it as an opaque string: the counter
	// widens past three digits when needed.
	ID string `json:"id"`
	// CanonicalName is the raw value that first created the entity,
	// original casing preserved.
	CanonicalName string `json:"canonical_name"`
	// Variants are the raw values known to refer to this entity, insertion
	// order preserved, always containing at least CanonicalName.
	Variants []string `json:"variants"`
}

// HasVariant reports whether value (compared by canonical form) is already
// recorded on the entity.
func (e *Entity) HasVariant(value string) bool {
	n := normalize.Value(value)
	for _, v := range e.Variants {
		if normalize.Value(v) == n {
			return true
		}
	}
	return false
}

// Lexicon holds entities in id order plus a reverse index from normalized
// variant to canonical id for O(1) exact lookup.
type Lexicon struct {
	entities []*Entity
	byID     map[string]*Entity
	byNorm   map[string]string // normalized variant -> canonical id
	next     int               // next sequential counter, 1-based
}

// New returns an empty lexicon whose first minted id will be ID001.
func New() *Lexicon {
	return &Lexicon{
		byID:   make(map[string]*Entity),
		byNorm: make(map[string]string),
		next:   1,
	}
}

// Create builds a lexicon from a flat list of raw values, one entity per
// distinct normalized value in order of first appearance. Values that are
// empty after normalization are skipped and never become entities.
func Create(values []string) *Lexicon {
	l := New()
	for _, v := range values {
		n := normalize.Value(v)
		if n == "" {
			continue
		}
		if _, ok := l.byNorm[n]; ok {
			continue
		}
		l.AddNew(v)
	}
	return l
}

// Len returns the number of entities.
func (l *Lexicon) Len() int { return len(l.entities) }

// Entities returns the entities in id order. The slice is shared; callers
// must not mutate it.
func (l *Lexicon) Entities() []*Entity { return l.entities }

// Entity returns the entity for a canonical id.
func (l *Lexicon) Entity(id string) (*Entity, bool) {
	e, ok := l.byID[id]
	return e, ok
}

// LookupExact resolves a raw value by its normalized form against the
// reverse index. Empty-after-normalization values never resolve.
func (l *Lexicon) LookupExact(value string) (string, bool) {
	n := normalize.Value(value)
	if n == "" {
		return "", false
	}
	id, ok := l.byNorm[n]
	return id, ok
}

// AddNew mints the next sequential id and registers value as a new entity
// with itself as sole variant. Ids are monotonically increasing and never
// reused, even across snapshot reloads.
func (l *Lexicon) AddNew(value string) string {
	id := FormatID(l.next)
	l.next++

	e := &Entity{
		ID:            id,
		CanonicalName: value,
		Variants:      []string{value},
	}
	l.entities = append(l.entities, e)
	l.byID[id] = e
	if n := normalize.Value(value); n != "" {
		l.byNorm[n] = id
	}
	return id
}

// AddVariant records value as another spelling of the given entity and
// indexes it for future exact lookups. No-op when the variant is already
// known; unknown ids are an error.
func (l *Lexicon) AddVariant(id, value string) error {
	e, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("lexicon: unknown canonical id %s", id)
	}
	if e.HasVariant(value) {
		return nil
	}
	e.Variants = append(e.Variants, value)
	if n := normalize.Value(value); n != "" {
		if _, taken := l.byNorm[n]; !taken {
			l.byNorm[n] = id
		}
	}
	return nil
}

// FormatID renders the canonical id for a 1-based counter: ID001 ... ID999,
// then ID1000 and wider. Never truncates.
func FormatID(n int) string {
	return fmt.Sprintf("ID%03d", n)
}
