package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), store.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "lexicon.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestLoadEmptyDatabase(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrNotExist) {
		t.Fatalf("Load on empty db = %v, want ErrNotExist", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	lex := lexicon.Create([]string{"Acme", "Beta Industries"})
	if err := lex.AddVariant("ID001", "ACME Corp"); err != nil {
		t.Fatalf("AddVariant: %v", err)
	}
	if err := s.Save(ctx, lex); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	e, ok := got.Entity("ID001")
	if !ok {
		t.Fatal("ID001 missing after reload")
	}
	if e.CanonicalName != "Acme" {
		t.Errorf("canonical = %q, want Acme", e.CanonicalName)
	}
	if len(e.Variants) != 2 || e.Variants[1] != "ACME Corp" {
		t.Errorf("variants = %v, want [Acme, ACME Corp]", e.Variants)
	}

	// The id counter resumes past the reloaded entities.
	if id := got.AddNew("Gamma"); id != "ID003" {
		t.Errorf("AddNew after reload = %s, want ID003", id)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if err := s.Save(ctx, lexicon.Create([]string{"Old One", "Old Two"})); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(ctx, lexicon.Create([]string{"Fresh"})); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("Len = %d, want 1 (save replaces wholesale)", got.Len())
	}
	if _, ok := got.Entity("ID001"); !ok {
		t.Error("ID001 missing after replace")
	}
}
