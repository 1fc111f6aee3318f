// Package mssql implements the SQL Server snapshot store.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("mssql", New)
}

// NVARCHAR keeps accented variant spellings intact; the canonical form is
// derived in-process, never in the database.
const schema = `
IF OBJECT_ID('lexicon_entities', 'U') IS NULL
CREATE TABLE lexicon_entities (
  position        INT            NOT NULL PRIMARY KEY,
  id              NVARCHAR(64)   NOT NULL UNIQUE,
  canonical_name  NVARCHAR(MAX)  NOT NULL
);
IF OBJECT_ID('lexicon_variants', 'U') IS NULL
CREATE TABLE lexicon_variants (
  entity_id  NVARCHAR(64)  NOT NULL,
  position   INT           NOT NULL,
  value      NVARCHAR(MAX) NOT NULL,
  CONSTRAINT pk_lexicon_variants PRIMARY KEY (entity_id, position)
);`

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Load(ctx context.Context) (*lexicon.Lexicon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_name FROM lexicon_entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("mssql store: select entities: %w", err)
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
		return nil, fmt.Errorf("mssql store: select variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var id, value string
		if err := vrows.Scan(&id, &value); err != nil {
			return nil, err
		}
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("mssql store: variant for unknown entity %s", id)
		}
		e.Variants = append(e.Variants, value)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	return lexicon.FromEntities(ents)
}

// Save replaces the snapshot wholesale in one transaction (delete + insert;
// no MERGE, the snapshot is small and rewritten after every pass anyway).
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
			`INSERT INTO lexicon_entities (position, id, canonical_name) VALUES (@p1, @p2, @p3)`,
			pos, e.ID, e.CanonicalName,
		); err != nil {
			return fmt.Errorf("mssql store: insert entity %s: %w", e.ID, err)
		}
		for vpos, v := range e.Variants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO lexicon_variants (entity_id, position, value) VALUES (@p1, @p2, @p3)`,
				e.ID, vpos, v,
			); err != nil {
				return fmt.Errorf("mssql store: insert variant of %s: %w", e.ID, err)
			}
		}
	}

	return tx.Commit()
}
