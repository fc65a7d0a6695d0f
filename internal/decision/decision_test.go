package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pitwall/internal/rng"
)

func TestSeeded_BidWithinBudget(t *testing.T) {
	for _, p := range Personalities {
		t.Run(string(p), func(t *testing.T) {
			provider := NewSeeded(p)
			for round := 1; round <= 5; round++ {
				ctx := BidContext{Round: round, Rounds: 5, Budget: 1000, Rank: 4, Managers: 4}
				amount := provider.Bid(ctx, rng.New("seed", "bid", round, string(p)))
				assert.GreaterOrEqual(t, amount, 0)
				assert.LessOrEqual(t, amount, ctx.Budget)
			}
		})
	}
}

func TestSeeded_PureGivenContextAndSeed(t *testing.T) {
	provider := NewSeeded(PersonalityAggressive)
	ctx := BidContext{Round: 3, Rounds: 5, Budget: 700, Rank: 2, Managers: 4}

	first := provider.Bid(ctx, rng.New("seed-9", "bid", 3, "aggressive"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, provider.Bid(ctx, rng.New("seed-9", "bid", 3, "aggressive")))
	}
}

func TestSeeded_ZeroBudgetBidsZero(t *testing.T) {
	provider := NewSeeded(PersonalityAggressive)
	got := provider.Bid(BidContext{Round: 1, Rounds: 5, Budget: 0}, rng.New("s", "bid", 1))
	assert.Equal(t, 0, got)
}

func TestSeeded_StrategyDeterministic(t *testing.T) {
	provider := NewSeeded(PersonalityBalanced)
	ctx := StrategyContext{Round: 2, Challenge: "parse the telemetry stream", WonAuction: true}
	assert.Equal(t, provider.Strategy(ctx), provider.Strategy(ctx))
	assert.Contains(t, provider.Strategy(ctx), "auction advantage")
}

func TestNewSeeded_UnknownFallsBackToBalanced(t *testing.T) {
	provider := NewSeeded(Personality("chaotic"))
	low, high := provider.spendWindow()
	assert.Equal(t, 10, low)
	assert.Equal(t, 35, high)
}
