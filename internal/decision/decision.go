// Package decision supplies the actions of non-human managers.
//
// A Provider must be pure given (context, generator): the engine derives a
// fresh seeded generator per decision so bot behavior is reproducible and a
// replayed match sees identical bids and strategies.
package decision

import (
	"fmt"
	"math/rand"
)

// BidContext is what a provider may consider when bidding. It carries no
// information about other managers' sealed bids.
type BidContext struct {
	Round     int
	Rounds    int
	Budget    int
	Rank      int
	Managers  int
	Challenge string
}

// StrategyContext is the input to a strategy decision.
type StrategyContext struct {
	Round      int
	Challenge  string
	WonAuction bool
}

// Provider decides a non-human manager's actions. Implementations must not
// retain the generator, must not block, and must be safe to call from
// multiple matches concurrently.
type Provider interface {
	// Bid returns a sealed amount in [0, ctx.Budget].
	Bid(ctx BidContext, gen *rand.Rand) int
	// Strategy returns the strategy text for the round.
	Strategy(ctx StrategyContext) string
}

// Personality names a spending profile for the seeded provider.
type Personality string

const (
	PersonalityAggressive Personality = "aggressive"
	PersonalityBalanced   Personality = "balanced"
	PersonalityCautious   Personality = "cautious"
)

// Personalities is the closed set accepted by configuration.
var Personalities = []Personality{PersonalityAggressive, PersonalityBalanced, PersonalityCautious}

// Seeded is the default Provider. All variation comes from the injected
// generator; the personality only shifts the spend window.
type Seeded struct {
	personality Personality
}

// NewSeeded returns a provider for the personality. Unknown personalities
// fall back to balanced.
func NewSeeded(p Personality) *Seeded {
	switch p {
	case PersonalityAggressive, PersonalityBalanced, PersonalityCautious:
		return &Seeded{personality: p}
	default:
		return &Seeded{personality: PersonalityBalanced}
	}
}

// spendWindow is the fraction of remaining budget the personality is
// willing to commit, as [low, high) hundredths.
func (s *Seeded) spendWindow() (low, high int) {
	switch s.personality {
	case PersonalityAggressive:
		return 25, 60
	case PersonalityCautious:
		return 0, 15
	default:
		return 10, 35
	}
}

// Bid implements Provider. Later rounds bid a larger share of what remains;
// trailing managers stretch toward the top of their window.
func (s *Seeded) Bid(ctx BidContext, gen *rand.Rand) int {
	if ctx.Budget <= 0 {
		return 0
	}

	low, high := s.spendWindow()
	pct := low + gen.Intn(high-low+1)

	// Underdogs push harder: each rank behind the leader adds 2%.
	if ctx.Rank > 1 {
		pct += 2 * (ctx.Rank - 1)
	}
	// Budget left after the final round is wasted; scale up late.
	if ctx.Rounds > 0 && ctx.Round == ctx.Rounds {
		pct += 20
	}
	if pct > 100 {
		pct = 100
	}

	amount := ctx.Budget * pct / 100
	if amount > ctx.Budget {
		amount = ctx.Budget
	}
	return amount
}

var strategyTemplates = []string{
	"front-load the easy cases, then optimize the hot path",
	"minimal pass first, refactor only if the harness leaves headroom",
	"parallelize the independent sub-tasks and merge late",
	"lock in correctness early and trade memory for speed",
	"target the edge cases the briefing hinted at",
}

// Strategy implements Provider. The text is a pure function of the context
// so replays log identical strategies.
func (s *Seeded) Strategy(ctx StrategyContext) string {
	template := strategyTemplates[ctx.Round%len(strategyTemplates)]
	if ctx.WonAuction {
		return fmt.Sprintf("%s; lean on the auction advantage for %q", template, ctx.Challenge)
	}
	return fmt.Sprintf("%s (round %d)", template, ctx.Round)
}
