// Package file implements the JSON-file snapshot store, the default backend:
// one human-readable JSON document per lexicon.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/store"
)

type Store struct {
	path string
}

func init() {
	store.Register("file", New)
}

// New creates a file store at cfg.DSN (the snapshot path). The file need not
// exist yet; Load reports store.ErrNotExist until the first Save.
func New(_ context.Context, cfg store.Config) (store.Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("file store: empty path")
	}
	return &Store{path: cfg.DSN}, nil
}

func (s *Store) Close() {}

func (s *Store) Load(_ context.Context) (*lexicon.Lexicon, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotExist
		}
		return nil, fmt.Errorf("file store: open %s: %w", s.path, err)
	}
	defer f.Close()

	return lexicon.Load(f, s.path)
}

// Save writes to a temp file in the same directory and renames it over the
// snapshot, so a crash mid-write never leaves a half-written snapshot.
func (s *Store) Save(_ context.Context, l *lexicon.Lexicon) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := lexicon.Save(tmp, l); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("file store: rename into %s: %w", s.path, err)
	}
	return nil
}
