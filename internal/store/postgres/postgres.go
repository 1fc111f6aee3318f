// Package postgres implements the Postgres snapshot store on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func init() {
	store.Register("postgres", New)
}

const schema = `
CREATE TABLE IF NOT EXISTS lexicon_entities (
  position        INT  NOT NULL PRIMARY KEY,
  id              TEXT NOT NULL UNIQUE,
  canonical_name  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS lexicon_variants (
  entity_id  TEXT NOT NULL REFERENCES lexicon_entities(id) ON DELETE CASCADE,
  position   INT  NOT NULL,
  value      TEXT NOT NULL,
  PRIMARY KEY (entity_id, position)
);`

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Load(ctx context.Context) (*lexicon.Lexicon, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, canonical_name FROM lexicon_entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: select entities: %w", err)
	}

	var ents []*lexicon.Entity
	byID := map[string]*lexicon.Entity{}
	for rows.Next() {
		e := &lexicon.Entity{}
		if err := rows.Scan(&e.ID, &e.CanonicalName); err != nil {
			rows.Close()
			return nil, err
		}
		ents = append(ents, e)
		byID[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ents) == 0 {
		return nil, store.ErrNotExist
	}

	vrows, err := s.pool.Query(ctx,
		`SELECT entity_id, value FROM lexicon_variants ORDER BY entity_id, position`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: select variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var id, value string
		if err := vrows.Scan(&id, &value); err != nil {
			return nil, err
		}
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("postgres store: variant for unknown entity %s", id)
		}
		e.Variants = append(e.Variants, value)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	return lexicon.FromEntities(ents)
}

// Save replaces the snapshot wholesale in one transaction, batching inserts
// through pgx.Batch to keep round trips low on large lexicons.
func (s *Store) Save(ctx context.Context, l *lexicon.Lexicon) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM lexicon_entities`); err != nil {
		return err
	}

	b := &pgx.Batch{}
	for pos, e := range l.Entities() {
		b.Queue(
			`INSERT INTO lexicon_entities (position, id, canonical_name) VALUES ($1, $2, $3)`,
			pos, e.ID, e.CanonicalName,
		)
		for vpos, v := range e.Variants {
			b.Queue(
				`INSERT INTO lexicon_variants (entity_id, position, value) VALUES ($1, $2, $3)`,
				e.ID, vpos, v,
			)
		}
	}
	if b.Len() > 0 {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("postgres store: batch insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}
