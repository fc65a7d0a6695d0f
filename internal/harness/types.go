package harness

import (
	"fmt"
	"strings"

	"pitwall/internal/engine"
	"pitwall/internal/event"
)

// TranscriptEntry is one event of the match reduced to its stable,
// timestamp-free identity: sequence, type, and a type-specific detail
// column (target phase for transitions, acting manager for submissions,
// winner for round and match results).
type TranscriptEntry struct {
	Seq    int64  `json:"seq"`
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of executing a scenario.
type Result struct {
	// Pass indicates overall scenario success: every step outcome and
	// every assertion held.
	Pass bool `json:"pass"`

	// Transcript is the full event log in append order, reduced for
	// golden comparison.
	Transcript []TranscriptEntry `json:"transcript"`

	// Errors contains step and assertion failure messages. Empty when
	// Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the final match view.
	Snapshot engine.Snapshot `json:"snapshot"`
}

// NewResult creates a new passing result. Steps and assertions demote it.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Render formats the transcript as one line per event, tab-separated.
// The format is the golden file contract: stable across runs for a given
// seed and script.
func (r *Result) Render() []byte {
	var b strings.Builder
	for _, e := range r.Transcript {
		if e.Detail == "" {
			fmt.Fprintf(&b, "%d\t%s\n", e.Seq, e.Type)
			continue
		}
		fmt.Fprintf(&b, "%d\t%s\t%s\n", e.Seq, e.Type, e.Detail)
	}
	return []byte(b.String())
}

// transcribe reduces records to transcript entries.
func transcribe(records []event.Record) []TranscriptEntry {
	out := make([]TranscriptEntry, len(records))
	for i, rec := range records {
		out[i] = TranscriptEntry{
			Seq:    rec.Seq,
			Type:   string(rec.Type),
			Detail: detailOf(rec.Payload),
		}
	}
	return out
}

func detailOf(p event.Payload) string {
	switch v := p.(type) {
	case event.PhaseTransition:
		return v.To
	case event.BidSubmitted:
		return v.ManagerID
	case event.StrategySubmitted:
		return v.ManagerID
	case event.SubmissionScored:
		return v.ManagerID
	case event.RoundResult:
		return v.Winner
	case event.FinalStandings:
		if len(v.Standings) > 0 {
			return v.Standings[0].ManagerID
		}
		return ""
	case event.MatchComplete:
		return v.Winner
	default:
		return ""
	}
}
