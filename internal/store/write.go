package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"pitwall/internal/event"
)

// Register records the match's existence and seed. Registering the same
// match twice is an error: the seed is immutable.
func (s *Store) Register(ctx context.Context, matchID, seed string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (id, seed) VALUES (?, ?)`, matchID, seed)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("register match %s: already registered", matchID)
	}
	if err != nil {
		return fmt.Errorf("register match %s: %w", matchID, err)
	}
	return nil
}

// Append writes one event, assigning the match's next sequence number in
// the same statement. With the store's single connection the subselect and
// insert are atomic, so concurrent appends can never produce gaps or
// duplicates.
func (s *Store) Append(ctx context.Context, matchID string, p event.Payload) (int64, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("append %s: marshal payload: %w", p.EventType(), err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO events (match_id, seq, event_type, payload, at)
		VALUES (?, (SELECT COALESCE(MAX(seq) + 1, 0) FROM events WHERE match_id = ?), ?, ?, ?)
		RETURNING seq
	`, matchID, matchID, string(p.EventType()), string(payload), time.Now().UTC().Format(time.RFC3339Nano))

	var seq int64
	if err := row.Scan(&seq); err != nil {
		if isMissingMatch(err) {
			return 0, fmt.Errorf("append to %s: %w", matchID, ErrUnknownMatch)
		}
		return 0, fmt.Errorf("append %s to %s: %w", p.EventType(), matchID, err)
	}
	return seq, nil
}

func isMissingMatch(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return errors.Is(err, sql.ErrNoRows)
}
