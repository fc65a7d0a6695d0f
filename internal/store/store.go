// Package store is the append-only event log: the single source of truth
// for what happened in a match and in what order.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"pitwall/internal/event"
)

//go:embed schema.sql
var schemaSQL string

// ErrUnknownMatch is returned by queries about a match the store has never
// been told about.
var ErrUnknownMatch = errors.New("store: unknown match")

// Sink is the event log contract the engine and the replay reconstructor
// share.
//
// Append assigns the next sequence number for the match (starting at 0,
// strictly increasing, no gaps) atomically even under concurrent appends
// from timer callbacks and external submissions. Append failures are the
// caller's to swallow: gameplay must never block on persistence.
type Sink interface {
	// Register records a match's existence and immutable seed. Must be
	// called before the match's first Append so no event is dropped.
	Register(ctx context.Context, matchID, seed string) error

	// Append writes one event and returns its assigned sequence number.
	Append(ctx context.Context, matchID string, p event.Payload) (int64, error)

	// Query returns the match's records ordered by sequence number,
	// restricted to [from, to] inclusive when to >= 0.
	Query(ctx context.Context, matchID string, from, to int64) ([]event.Record, error)

	// Seed returns the match's immutable seed, or ErrUnknownMatch.
	Seed(ctx context.Context, matchID string) (string, error)
}

// Store is the SQLite-backed Sink. WAL mode allows replay reads while a
// live match appends.
type Store struct {
	db *sql.DB
}

var _ Sink = (*Store)(nil)

// Open creates or opens the database at path (":memory:" for tests).
// Pragmas and the schema are applied automatically; Open is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer; a single connection keeps the per-match
	// sequence assignment atomic and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
