// Package match implements the incremental fuzzy matcher: given a batch of
// raw values and the current lexicon, resolve each value to an existing
// canonical id or mint a new one.
//
// The pass is greedy and order-sensitive: entities minted earlier
// in a batch become candidates for later values of the same batch, so
// reordering inputs can change the final entity count. Resolving a fixed
// order against a fixed lexicon is deterministic.
package match

import (
	"context"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/normalize"
)

// Default thresholds. The primary matcher merges at 0.90; the lower-precision
// display-name join path uses 0.85.
const (
	DefaultThreshold     = 0.90
	DefaultJoinThreshold = 0.85
)

// Result is the outcome for one input value. Ephemeral: consumed to build
// the enriched table, never persisted on its own.
type Result struct {
	// Value is the original raw input.
	Value string
	// CanonicalID is the resolved id, or "" when the value was empty after
	// normalization (rendered as NOT_FOUND downstream).
	CanonicalID string
	// Score is 1.0 for exact variant hits, the similarity ratio for fuzzy
	// merges, and 0.0 for freshly minted entities and unresolved values.
	Score float64
	// Minted is true when the value created a new entity.
	Minted bool
}

// ResolveBatch resolves values against lex in input order, mutating lex in
// place. threshold <= 0 falls back to DefaultThreshold.
//
// Per value:
//  1. empty after normalization: unresolved, score 0, lexicon untouched;
//  2. exact: the normalized value already exists as a variant, resolve with
//     score 1.0, fuzzy scoring skipped entirely;
//  3. fuzzy: score the value against every entity's canonical name (one
//     representative string per entity); best entity wins if it clears the
//     threshold, ties going to the earliest id, and the original spelling is
//     recorded as a new variant;
//  4. otherwise mint a new entity from the original value.
//
// The pass is not transactional: on ctx cancellation the lexicon keeps the
// mutations performed so far and the caller must reload from its snapshot.
func ResolveBatch(ctx context.Context, lex *lexicon.Lexicon, values []string, threshold float64) ([]Result, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	out := make([]Result, 0, len(values))
	for _, v := range values {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		out = append(out, resolveOne(lex, v, threshold))
	}
	return out, nil
}

func resolveOne(lex *lexicon.Lexicon, value string, threshold float64) Result {
	n := normalize.Value(value)
	if n == "" {
		return Result{Value: value}
	}

	// Exact precedes fuzzy and always wins, even over a perfect-scoring
	// fuzzy candidate.
	if id, ok := lex.LookupExact(value); ok {
		return Result{Value: value, CanonicalID: id, Score: 1.0}
	}

	if id, score, ok := bestCanonical(lex, n, threshold); ok {
		// Record the new spelling under the matched entity. The id came
		// from the lexicon a moment ago, so the error path is unreachable.
		_ = lex.AddVariant(id, value)
		return Result{Value: value, CanonicalID: id, Score: score}
	}

	id := lex.AddNew(value)
	return Result{Value: value, CanonicalID: id, Minted: true}
}

// bestCanonical scans entities in id order and keeps the single best
// canonical-name score. Strictly-greater comparison makes ties resolve to
// the earliest id.
func bestCanonical(lex *lexicon.Lexicon, norm string, threshold float64) (string, float64, bool) {
	bestID := ""
	bestScore := 0.0
	for _, e := range lex.Entities() {
		s := Ratio(norm, normalize.Value(e.CanonicalName))
		if s > bestScore {
			bestScore = s
			bestID = e.ID
		}
	}
	if bestID == "" || bestScore < threshold {
		return "", 0, false
	}
	return bestID, bestScore, true
}
