// Package normalize implements the canonical text form used everywhere two
// raw values must be compared for identity: lexicon variant lookups, fuzzy
// scoring, and column-header matching all go through Value.
//
// The canonical form is lowercase, accent-stripped ASCII-ish text with
// internal whitespace runs collapsed to a single underscore. Two raw strings
// denote the same variant iff their canonical forms are byte-equal.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes, drops combining marks, recomposes.
// "Café" -> "Cafe", "Müller" -> "Muller".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Value converts s to its canonical comparison form.
//
// Steps, in order: lowercase, trim edge whitespace, transliterate diacritics
// to their unaccented equivalent, collapse internal whitespace runs to one
// underscore. The function is total (never fails; a failed transform falls
// back to the lowercased input) and idempotent: Value(Value(s)) == Value(s).
func Value(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte('_')
			inSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Any coerces a non-string scalar to its string form before canonicalizing.
// nil canonicalizes to "".
func Any(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return Value(t)
	case []byte:
		return Value(string(t))
	default:
		return Value(fmt.Sprint(v))
	}
}
