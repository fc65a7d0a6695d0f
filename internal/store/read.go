package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pitwall/internal/event"
)

// Seed returns the match's immutable seed.
func (s *Store) Seed(ctx context.Context, matchID string) (string, error) {
	var seed string
	err := s.db.QueryRowContext(ctx,
		`SELECT seed FROM matches WHERE id = ?`, matchID).Scan(&seed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("seed of %s: %w", matchID, ErrUnknownMatch)
	}
	if err != nil {
		return "", fmt.Errorf("seed of %s: %w", matchID, err)
	}
	return seed, nil
}

// Matches lists every registered match ID in lexical order.
func (s *Store) Matches(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM matches ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return ids, nil
}

// Query returns the match's events ordered by sequence number. from and to
// bound the range inclusively; pass from=0, to=-1 for everything.
func (s *Store) Query(ctx context.Context, matchID string, from, to int64) ([]event.Record, error) {
	// Unknown matches are an error, not an empty result.
	if _, err := s.Seed(ctx, matchID); err != nil {
		return nil, err
	}

	query := `
		SELECT match_id, seq, event_type, payload, at
		FROM events
		WHERE match_id = ? AND seq >= ?
	`
	args := []any{matchID, from}
	if to >= 0 {
		query += ` AND seq <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events of %s: %w", matchID, err)
	}
	defer rows.Close()

	records := []event.Record{}
	for rows.Next() {
		var (
			rec       event.Record
			eventType string
			payload   string
			at        string
		)
		if err := rows.Scan(&rec.MatchID, &rec.Seq, &eventType, &payload, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Type = event.Type(eventType)
		rec.Payload, err = event.Decode(rec.Type, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("event %s/%d: %w", matchID, rec.Seq, err)
		}
		rec.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("event %s/%d: parse timestamp: %w", matchID, rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events of %s: %w", matchID, err)
	}
	return records, nil
}
