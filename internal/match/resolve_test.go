package match

import (
	"context"
	"testing"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
)

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"acme", "acme", 1.0},
		{"", "", 1.0},
		{"acme", "", 0.0},
		{"name", "names", 0.8},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
	}
	for _, c := range cases {
		if got := Ratio(c.a, c.b); !closeTo(got, c.want) {
			t.Errorf("Ratio(%q,%q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
	// Symmetry.
	if Ratio("abc", "abcd") != Ratio("abcd", "abc") {
		t.Errorf("Ratio is not symmetric")
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func seed(values ...string) *lexicon.Lexicon {
	return lexicon.Create(values)
}

func TestResolveBatch_EndToEnd(t *testing.T) {
	lex := seed("Acme")

	res, err := ResolveBatch(context.Background(), lex, []string{"ACME", "Beta"}, 0.9)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len = %d", len(res))
	}

	if res[0].CanonicalID != "ID001" || res[0].Score != 1.0 {
		t.Fatalf("ACME → %+v, want ID001 score 1.0 (exact variant hit)", res[0])
	}
	if res[1].CanonicalID != "ID002" || res[1].Score != 0.0 || !res[1].Minted {
		t.Fatalf("Beta → %+v, want fresh ID002 score 0.0", res[1])
	}
	if lex.Len() != 2 {
		t.Fatalf("lexicon has %d entities, want 2", lex.Len())
	}
}

func TestResolveBatch_ExactPrecedesFuzzy(t *testing.T) {
	lex := seed("Acme")
	// "aCmE" normalizes to an existing variant: must score exactly 1.0 and
	// must not add a variant.
	res, _ := ResolveBatch(context.Background(), lex, []string{"aCmE"}, 0.9)
	if res[0].Score != 1.0 {
		t.Fatalf("score = %v, want 1.0", res[0].Score)
	}
	e, _ := lex.Entity("ID001")
	if len(e.Variants) != 1 {
		t.Fatalf("exact hit must not grow the variant set: %v", e.Variants)
	}
}

func TestResolveBatch_FuzzyMergeRecordsVariant(t *testing.T) {
	lex := seed("Acme Corp")

	res, _ := ResolveBatch(context.Background(), lex, []string{"Acme  Core"}, 0.8)
	if res[0].CanonicalID != "ID001" {
		t.Fatalf("expected fuzzy merge into ID001, got %+v", res[0])
	}
	if res[0].Score >= 1.0 || res[0].Score < 0.8 {
		t.Fatalf("fuzzy score out of range: %v", res[0].Score)
	}

	e, _ := lex.Entity("ID001")
	if len(e.Variants) != 2 || e.Variants[1] != "Acme  Core" {
		t.Fatalf("original spelling must be stored as variant: %v", e.Variants)
	}
	// The new variant now resolves exactly.
	if id, ok := lex.LookupExact("acme core"); !ok || id != "ID001" {
		t.Fatalf("LookupExact after merge = %q,%v", id, ok)
	}
}

func TestResolveBatch_BelowThresholdMints(t *testing.T) {
	lex := seed("Acme")
	res, _ := ResolveBatch(context.Background(), lex, []string{"Zenith"}, 0.9)
	if !res[0].Minted || res[0].CanonicalID != "ID002" {
		t.Fatalf("Zenith should mint ID002, got %+v", res[0])
	}
}

func TestResolveBatch_EmptyValuesNeverEnterLexicon(t *testing.T) {
	lex := seed("Acme")
	res, _ := ResolveBatch(context.Background(), lex, []string{"", "   "}, 0.9)
	for _, r := range res {
		if r.CanonicalID != "" || r.Score != 0 {
			t.Fatalf("empty value resolved: %+v", r)
		}
	}
	if lex.Len() != 1 {
		t.Fatalf("lexicon grew on empty input")
	}
}

func TestResolveBatch_TieGoesToEarlierID(t *testing.T) {
	// "abx" and "aby" are equidistant from "abz"; ID001 must win.
	lex := seed("abx", "aby")
	res, _ := ResolveBatch(context.Background(), lex, []string{"abz"}, 0.6)
	if res[0].CanonicalID != "ID001" {
		t.Fatalf("tie broke to %s, want ID001", res[0].CanonicalID)
	}
}

func TestResolveBatch_WithinBatchCandidates(t *testing.T) {
	// An entity minted earlier in the batch is a candidate for later values.
	lex := lexicon.New()
	res, _ := ResolveBatch(context.Background(), lex, []string{"Grendel", "Grendell"}, 0.85)
	if !res[0].Minted {
		t.Fatalf("first value should mint")
	}
	if res[1].Minted || res[1].CanonicalID != res[0].CanonicalID {
		t.Fatalf("second value should merge into the first: %+v", res[1])
	}
}

func TestResolveBatch_OrderSensitivityIsDeterministic(t *testing.T) {
	// Same fixed order against fresh lexicons gives identical outcomes.
	run := func() []Result {
		lex := lexicon.New()
		res, _ := ResolveBatch(context.Background(), lex, []string{"Acme Inc", "Acme", "ACME"}, 0.8)
		return res
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run not repeatable at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestResolveBatch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lex := lexicon.New()
	if _, err := ResolveBatch(ctx, lex, []string{"a"}, 0.9); err == nil {
		t.Fatalf("expected context error")
	}
}
