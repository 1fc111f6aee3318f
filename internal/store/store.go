// Package store persists lexicon snapshots. Backends register themselves
// under a kind ("file", "sqlite", "postgres", "mssql") from init functions;
// callers pick one by kind + DSN.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
)

// ErrNotExist is returned by Load when the configured location holds no
// snapshot yet. It is distinct from a malformed snapshot, which surfaces as
// *lexicon.MalformedSnapshotError (or a backend error) and must never be
// treated as an empty lexicon.
var ErrNotExist = errors.New("store: snapshot does not exist")

// Config selects a backend.
type Config struct {
	// Kind must match a registered backend kind.
	Kind string `json:"kind"`
	// DSN is backend-specific: a file path for "file", a connection string
	// for the SQL backends.
	DSN string `json:"dsn"`
}

// Store reads and writes full lexicon snapshots. Saves replace the previous
// snapshot wholesale; the lexicon is the unit of persistence.
//
// Concurrency: one writer at a time. The resolver core performs a single
// linear pass per batch and the caller serializes concurrent batches.
type Store interface {
	// Load returns the persisted lexicon, or ErrNotExist when nothing has
	// been saved yet.
	Load(ctx context.Context) (*lexicon.Lexicon, error)

	// Save persists the full lexicon, replacing any previous snapshot.
	Save(ctx context.Context, l *lexicon.Lexicon) error

	// Close releases backend resources. Call once.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Called from backend init
// functions; registering the same kind twice panics to fail fast on
// ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store for the configured backend kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("store: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
