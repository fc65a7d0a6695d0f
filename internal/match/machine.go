package match

import (
	"errors"
	"fmt"

	"pitwall/internal/rng"
)

// ErrInvalidTransition reports an attempt to advance a terminal machine.
// This is a programmer error: no path through the engine's public API can
// reach it, only a malfunctioning caller.
var ErrInvalidTransition = errors.New("match: advance past terminal phase")

// Transition describes one state-machine step.
type Transition struct {
	Round int
	From  Phase
	To    Phase
	// RoundRolled is true when the transition crossed a round boundary
	// (scoring → briefing of the next round). Round-scoped ephemeral state
	// must be discarded wholesale when it is set.
	RoundRolled bool
	// Terminal is true when To is the terminal phase.
	Terminal bool
}

// Machine is the phase state machine for one match.
//
// State is (round, phase) plus a terminal flag. A deterministic generator
// state is re-derived on every transition from the match seed and the new
// (round, phase), so identical seeds walk identical (round, phase, rngState)
// sequences and consumers never share a mutable RNG.
type Machine struct {
	seed     string
	round    int
	phase    Phase
	terminal bool
	rngState uint64
	rounds   int
}

// NewMachine starts a machine at (round 1, briefing) for the given seed.
// rounds is the fixed number of rounds in the match.
func NewMachine(seed string, rounds int) *Machine {
	m := &Machine{seed: seed, round: 1, phase: PhaseBriefing, rounds: rounds}
	m.rngState = m.deriveState()
	return m
}

func (m *Machine) deriveState() uint64 {
	return rng.State(rng.Key(m.seed, string(m.phase), m.round))
}

// Round returns the current round (monotonically non-decreasing, in
// [1, rounds]).
func (m *Machine) Round() int { return m.round }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Terminal reports whether the machine has reached final standings.
func (m *Machine) Terminal() bool { return m.terminal }

// Rounds returns the fixed round count.
func (m *Machine) Rounds() int { return m.rounds }

// RNGState returns the generator state derived for the current
// (round, phase). Exposed so determinism can be asserted externally.
func (m *Machine) RNGState() uint64 { return m.rngState }

// Seed returns the immutable match seed.
func (m *Machine) Seed() string { return m.seed }

// Advance moves to the next phase.
//
// Within a round, phases follow the fixed order briefing → bidding →
// strategy → execution → scoring. From scoring, the machine either rolls to
// the next round's briefing or, after the last round, enters the terminal
// phase exactly once. Advancing a terminal machine is ErrInvalidTransition.
func (m *Machine) Advance() (Transition, error) {
	if m.terminal {
		return Transition{}, fmt.Errorf("round %d: %w", m.round, ErrInvalidTransition)
	}

	from := m.phase
	nextPhase, endOfRound := next(m.phase)

	switch {
	case !endOfRound:
		m.phase = nextPhase
	case m.round == m.rounds:
		m.phase = PhaseFinalStandings
		m.terminal = true
	default:
		m.round++
		m.phase = PhaseBriefing
	}

	m.rngState = m.deriveState()

	return Transition{
		Round:       m.round,
		From:        from,
		To:          m.phase,
		RoundRolled: endOfRound && !m.terminal,
		Terminal:    m.terminal,
	}, nil
}
