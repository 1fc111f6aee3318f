// Package sqlite implements the SQLite snapshot store.
//
// Schema: two tables, entities + variants, positional columns preserving
// snapshot order so Load rebuilds the exact entity and variant sequence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", New)
}

const schema = `
CREATE TABLE IF NOT EXISTS lexicon_entities (
  position        INTEGER PRIMARY KEY,
  id              TEXT NOT NULL UNIQUE,
  canonical_name  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS lexicon_variants (
  entity_id  TEXT NOT NULL REFERENCES lexicon_entities(id),
  position   INTEGER NOT NULL,
  value      TEXT NOT NULL,
  PRIMARY KEY (entity_id, position)
);`

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Load(ctx context.Context) (*lexicon.Lexicon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_name FROM lexicon_entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: select entities: %w", err)
	}
	defer rows.Close()

	var ents []*lexicon.Entity
	byID := map[string]*lexicon.Entity{}
	for rows.Next() {
		e := &lexicon.Entity{}
		if err := rows.Scan(&e.ID, &e.CanonicalName); err != nil {
			return nil, err
		}
		ents = append(ents, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ents) == 0 {
		return nil, store.ErrNotExist
	}

	vrows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, value FROM lexicon_variants ORDER BY entity_id, position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: select variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var id, value string
		if err := vrows.Scan(&id, &value); err != nil {
			return nil, err
		}
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("sqlite store: variant for unknown entity %s", id)
		}
		e.Variants = append(e.Variants, value)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	return lexicon.FromEntities(ents)
}

// Save replaces the persisted snapshot wholesale inside one transaction:
// partial writes are never observable.
func (s *Store) Save(ctx context.Context, l *lexicon.Lexicon) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lexicon_variants`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lexicon_entities`); err != nil {
		return err
	}

	for pos, e := range l.Entities() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lexicon_entities (position, id, canonical_name) VALUES (?, ?, ?)`,
			pos, e.ID, e.CanonicalName,
		); err != nil {
			return fmt.Errorf("sqlite store: insert entity %s: %w", e.ID, err)
		}
		for vpos, v := range e.Variants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO lexicon_variants (entity_id, position, value) VALUES (?, ?, ?)`,
				e.ID, vpos, v,
			); err != nil {
				return fmt.Errorf("sqlite store: insert variant of %s: %w", e.ID, err)
			}
		}
	}

	return tx.Commit()
}
