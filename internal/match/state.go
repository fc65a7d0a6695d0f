package match

import (
	"sort"

	"pitwall/internal/scoring"
)

// Status is the match lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Manager is one fixed participant of a match.
type Manager struct {
	ID          string
	Name        string
	Bot         bool
	Personality string
}

// RoundState is the round-scoped ephemeral state: constructed fresh at the
// start of every round and discarded wholesale at the round boundary, never
// cleared field by field.
type RoundState struct {
	Round      int
	Challenge  string
	Bids       map[string]int            // managerID → sealed amount
	Strategies map[string]string         // managerID → strategy text
	Scores     map[string]scoring.Result // managerID → scored result
	Winner     string                    // auction winner, "" if none
}

// NewRoundState returns the empty state for a round.
func NewRoundState(round int) *RoundState {
	return &RoundState{
		Round:      round,
		Bids:       make(map[string]int),
		Strategies: make(map[string]string),
		Scores:     make(map[string]scoring.Result),
	}
}

// State is the mutable state of one match, exclusively owned by the
// orchestrator goroutine/lock for that match.
type State struct {
	ID      string
	Seed    string
	Status  Status
	Machine *Machine

	Managers []Manager

	// Cumulative per-manager score; always equals the sum of RoundScores.
	Totals map[string]float64
	// Ordered per-round scored results per manager.
	RoundScores map[string][]scoring.Result
	// Remaining budget per manager.
	Budgets map[string]int

	// Round holds this round's ephemeral state.
	Round *RoundState
}

// NewState builds the initial state: round 1 briefing, full budgets, empty
// score lists, fresh round state.
func NewState(id, seed string, rounds, startingBudget int, managers []Manager) *State {
	s := &State{
		ID:          id,
		Seed:        seed,
		Status:      StatusActive,
		Machine:     NewMachine(seed, rounds),
		Managers:    managers,
		Totals:      make(map[string]float64, len(managers)),
		RoundScores: make(map[string][]scoring.Result, len(managers)),
		Budgets:     make(map[string]int, len(managers)),
		Round:       NewRoundState(1),
	}
	for _, m := range managers {
		s.Totals[m.ID] = 0
		s.RoundScores[m.ID] = nil
		s.Budgets[m.ID] = startingBudget
	}
	return s
}

// HasManager reports whether id is in the fixed roster.
func (s *State) HasManager(id string) bool {
	for _, m := range s.Managers {
		if m.ID == id {
			return true
		}
	}
	return false
}

// RecordScore appends a scored result to the manager's round list and keeps
// the cumulative total equal to the list's sum.
func (s *State) RecordScore(managerID string, res scoring.Result) {
	s.RoundScores[managerID] = append(s.RoundScores[managerID], res)
	s.Totals[managerID] += res.TotalScore
	s.Round.Scores[managerID] = res
}

// RollRound discards the round-scoped state and replaces it for the new
// round.
func (s *State) RollRound(round int) {
	s.Round = NewRoundState(round)
}

// RankOf returns the manager's current standings rank (1 = leader). Equal
// totals share the same rank; a fresh match has everyone at rank 1.
func (s *State) RankOf(managerID string) int {
	rank := 1
	myTotal := s.Totals[managerID]
	for _, m := range s.Managers {
		if m.ID == managerID {
			continue
		}
		other := s.Totals[m.ID]
		if other > myTotal {
			rank++
		}
	}
	return rank
}

// StandingEntry is one ranked row of the current standings.
type StandingEntry struct {
	Manager Manager
	Total   float64
	Budget  int
	Rank    int
}

// Standings returns managers ordered by descending total with ranks
// assigned. The sort is stable over the fixed roster order, so ties are
// deterministic.
func (s *State) Standings() []StandingEntry {
	entries := make([]StandingEntry, len(s.Managers))
	for i, m := range s.Managers {
		entries[i] = StandingEntry{Manager: m, Total: s.Totals[m.ID], Budget: s.Budgets[m.ID]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
