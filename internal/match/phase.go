// Package match holds the pure state of one match: the phase state machine,
// per-manager scores and budgets, and the round-scoped ephemeral state.
//
// Nothing in this package performs I/O, emits events, or touches timers;
// the engine package wraps transitions with those side effects.
package match

// Phase is one step of a round's fixed sequence, or the match-level
// terminal phase.
type Phase string

const (
	PhaseBriefing  Phase = "briefing"
	PhaseBidding   Phase = "bidding"
	PhaseStrategy  Phase = "strategy"
	PhaseExecution Phase = "execution"
	PhaseScoring   Phase = "scoring"

	// PhaseFinalStandings is terminal: entered exactly once, only from the
	// scoring phase of the last round.
	PhaseFinalStandings Phase = "final_standings"
)

// phaseOrder is the fixed per-round sequence.
var phaseOrder = [...]Phase{PhaseBriefing, PhaseBidding, PhaseStrategy, PhaseExecution, PhaseScoring}

// PhasesPerRound is the number of phases in one full round.
const PhasesPerRound = len(phaseOrder)

// next returns the phase following p within a round, and whether p was the
// round's last phase.
func next(p Phase) (Phase, bool) {
	for i, candidate := range phaseOrder {
		if candidate != p {
			continue
		}
		if i == len(phaseOrder)-1 {
			return "", true
		}
		return phaseOrder[i+1], false
	}
	// Unreachable for machine-owned phases; terminal is handled by Advance.
	return "", true
}
