package engine

import (
	"time"

	"pitwall/internal/event"
	"pitwall/internal/match"
	"pitwall/internal/scoring"
)

// Outcome is the structured result of a submission-application operation.
// Domain mismatches (wrong phase, wrong round, unknown manager, inactive
// match) and validation failures are reported here, never as errors or
// panics, and never mutate state.
type Outcome struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ManagerID string `json:"manager_id"`
	Round     int    `json:"round"`
}

func failure(managerID string, round int, msg string) Outcome {
	return Outcome{Success: false, Error: msg, ManagerID: managerID, Round: round}
}

func success(managerID string, round int) Outcome {
	return Outcome{Success: true, ManagerID: managerID, Round: round}
}

// HarnessSubmission is one manager's execution outcome as reported by the
// external test harness, plus the optional external bonus score (0..1 raw).
type HarnessSubmission struct {
	Result   scoring.HarnessResult
	RawBonus float64
}

// Snapshot is a point-in-time read-only view of a match.
type Snapshot struct {
	ID        string           `json:"id"`
	Seed      string           `json:"seed"`
	Status    match.Status     `json:"status"`
	Round     int              `json:"round"`
	Phase     match.Phase      `json:"phase"`
	Deadline  *time.Time       `json:"deadline,omitempty"`
	Standings []event.Standing `json:"standings"`
}
