// Package replay rebuilds a match's history from its event log.
//
// Reconstruction is a pure read path: it never mutates state and never
// recomputes results. Final standings come verbatim from the most recent
// final_standings event, preserving the original audit trail even if the
// scoring code has since changed.
package replay

import (
	"context"
	"fmt"

	"pitwall/internal/event"
	"pitwall/internal/store"
)

// Request selects what to reconstruct. From/To bound sequence numbers
// inclusively. Careful with the zero value: To 0 keeps only sequence 0.
// Use Full, or a negative To, for the whole log.
type Request struct {
	MatchID string
	From    int64
	// To is inclusive; any negative value means no upper bound.
	To int64
}

// Full requests the match's entire event log.
func Full(matchID string) Request {
	return Request{MatchID: matchID, To: -1}
}

// Replay is the reconstructed view of a match.
type Replay struct {
	MatchID string         `json:"match_id"`
	Seed    string         `json:"seed"`
	Events  []event.Record `json:"events"`
	// TotalEvents is the match's full event count, independent of any
	// range filter on Events.
	TotalEvents int `json:"total_events"`
	// FinalStandings is nil when the match has no final_standings event
	// (still running, or its terminal event was lost).
	FinalStandings []event.Standing `json:"final_standings,omitempty"`
}

// Reconstruct loads the match's events and derives the replay view.
// It fails only when the match itself is unknown to the sink.
func Reconstruct(ctx context.Context, sink store.Sink, req Request) (*Replay, error) {
	seed, err := sink.Seed(ctx, req.MatchID)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", req.MatchID, err)
	}

	all, err := sink.Query(ctx, req.MatchID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", req.MatchID, err)
	}

	filtered := all
	if req.From > 0 || req.To >= 0 {
		filtered = make([]event.Record, 0, len(all))
		for _, rec := range all {
			if rec.Seq < req.From {
				continue
			}
			if req.To >= 0 && rec.Seq > req.To {
				continue
			}
			filtered = append(filtered, rec)
		}
	}

	var standings []event.Standing
	for i := len(all) - 1; i >= 0; i-- {
		if fs, ok := all[i].Payload.(event.FinalStandings); ok {
			standings = fs.Standings
			break
		}
	}

	return &Replay{
		MatchID:        req.MatchID,
		Seed:           seed,
		Events:         filtered,
		TotalEvents:    len(all),
		FinalStandings: standings,
	}, nil
}

// Digest returns the canonical digest of the replay's event list (types,
// sequence numbers, and payloads; timestamps excluded). Two reconstructions
// of the same log always agree.
func (r *Replay) Digest() (string, error) {
	entries := make([]map[string]any, len(r.Events))
	for i, rec := range r.Events {
		entries[i] = map[string]any{
			"seq":     rec.Seq,
			"type":    string(rec.Type),
			"payload": rec.Payload,
		}
	}
	return event.Digest(map[string]any{
		"match_id": r.MatchID,
		"seed":     r.Seed,
		"events":   entries,
	})
}
