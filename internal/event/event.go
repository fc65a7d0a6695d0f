// Package event defines the match event log's record types.
//
// Every durable fact about a match is an immutable Record with a per-match
// strictly increasing sequence number. Payloads form a closed tagged union:
// one struct per event type, with a stable discriminant, so replay consumers
// can exhaustively switch on the kind without runtime type assertions.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"pitwall/internal/auction"
	"pitwall/internal/scoring"
)

// Type discriminates event payloads. The set is closed: unknown types are
// decode errors, never silently skipped.
type Type string

const (
	TypePhaseTransition   Type = "phase_transition"
	TypeBidSubmitted      Type = "bid_submitted"
	TypeStrategySubmitted Type = "strategy_submitted"
	TypeSubmissionScored  Type = "submission_scored"
	TypeRoundResult       Type = "round_result"
	TypeFinalStandings    Type = "final_standings"
	TypeMatchComplete     Type = "match_complete"
)

// Record is one appended event. Created only by a Sink append and immutable
// once written; it is the permanent record replay is derived from.
type Record struct {
	MatchID string    `json:"match_id"`
	Seq     int64     `json:"seq"`
	Type    Type      `json:"type"`
	Payload Payload   `json:"payload"`
	At      time.Time `json:"at"`
}

// Payload is implemented by exactly the structs below.
type Payload interface {
	EventType() Type
}

// Standing is one manager's position in the standings snapshot.
type Standing struct {
	ManagerID string  `json:"manager_id"`
	Name      string  `json:"name,omitempty"`
	Total     float64 `json:"total"`
	Budget    int     `json:"budget"`
	Rank      int     `json:"rank"`
}

// PhaseTransition records the orchestrator leaving From and entering To.
// Phase-specific context rides along: the round's challenge text when
// entering briefing, the auction outcome when leaving bidding.
type PhaseTransition struct {
	Round     int             `json:"round"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Challenge string          `json:"challenge,omitempty"`
	Auction   *auction.Result `json:"auction,omitempty"`
}

func (PhaseTransition) EventType() Type { return TypePhaseTransition }

// BidSubmitted records an accepted sealed bid.
type BidSubmitted struct {
	Round     int    `json:"round"`
	ManagerID string `json:"manager_id"`
	Amount    int    `json:"amount"`
}

func (BidSubmitted) EventType() Type { return TypeBidSubmitted }

// StrategySubmitted records an accepted strategy text.
type StrategySubmitted struct {
	Round     int    `json:"round"`
	ManagerID string `json:"manager_id"`
	Strategy  string `json:"strategy"`
}

func (StrategySubmitted) EventType() Type { return TypeStrategySubmitted }

// SubmissionScored records one manager's scored execution result.
type SubmissionScored struct {
	Round     int            `json:"round"`
	ManagerID string         `json:"manager_id"`
	Score     scoring.Result `json:"score"`
}

func (SubmissionScored) EventType() Type { return TypeSubmissionScored }

// RoundScore is a manager's score for a single round.
type RoundScore struct {
	ManagerID string  `json:"manager_id"`
	Score     float64 `json:"score"`
}

// RoundResult summarizes a finished round.
type RoundResult struct {
	Round     int          `json:"round"`
	Winner    string       `json:"winner,omitempty"` // auction winner, if any
	Scores    []RoundScore `json:"scores"`
	Standings []Standing   `json:"standings"`
}

func (RoundResult) EventType() Type { return TypeRoundResult }

// FinalStandings is the terminal standings snapshot. Replay reports these
// verbatim rather than recomputing them.
type FinalStandings struct {
	Standings []Standing `json:"standings"`
}

func (FinalStandings) EventType() Type { return TypeFinalStandings }

// MatchComplete marks the match as finished.
type MatchComplete struct {
	Rounds int    `json:"rounds"`
	Winner string `json:"winner"`
}

func (MatchComplete) EventType() Type { return TypeMatchComplete }

// Decode unmarshals a payload of the given type.
func Decode(t Type, data []byte) (Payload, error) {
	var p Payload
	switch t {
	case TypePhaseTransition:
		p = &PhaseTransition{}
	case TypeBidSubmitted:
		p = &BidSubmitted{}
	case TypeStrategySubmitted:
		p = &StrategySubmitted{}
	case TypeSubmissionScored:
		p = &SubmissionScored{}
	case TypeRoundResult:
		p = &RoundResult{}
	case TypeFinalStandings:
		p = &FinalStandings{}
	case TypeMatchComplete:
		p = &MatchComplete{}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return deref(p), nil
}

// deref returns the payload by value so records hold immutable copies.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *PhaseTransition:
		return *v
	case *BidSubmitted:
		return *v
	case *StrategySubmitted:
		return *v
	case *SubmissionScored:
		return *v
	case *RoundResult:
		return *v
	case *FinalStandings:
		return *v
	case *MatchComplete:
		return *v
	default:
		return p
	}
}
