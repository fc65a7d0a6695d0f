package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitwall/internal/event"
	"pitwall/internal/store"
)

func seedSink(t *testing.T, withFinal bool) store.Sink {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Register(ctx, "match-1", "seed-1"))

	for round := 1; round <= 2; round++ {
		_, err := s.Append(ctx, "match-1", event.PhaseTransition{Round: round, From: "scoring", To: "briefing"})
		require.NoError(t, err)
		_, err = s.Append(ctx, "match-1", event.BidSubmitted{Round: round, ManagerID: "m1", Amount: 10 * round})
		require.NoError(t, err)
		_, err = s.Append(ctx, "match-1", event.RoundResult{Round: round, Winner: "m1"})
		require.NoError(t, err)
	}
	if withFinal {
		_, err := s.Append(ctx, "match-1", event.FinalStandings{Standings: []event.Standing{
			{ManagerID: "m1", Total: 1800, Rank: 1},
			{ManagerID: "m2", Total: 1200, Rank: 2},
		}})
		require.NoError(t, err)
		_, err = s.Append(ctx, "match-1", event.MatchComplete{Rounds: 2, Winner: "m1"})
		require.NoError(t, err)
	}
	return s
}

func TestReconstruct_SequenceFidelity(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, true)

	rep, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)

	direct, err := sink.Query(ctx, "match-1", 0, -1)
	require.NoError(t, err)

	require.Len(t, rep.Events, len(direct))
	for i := range direct {
		assert.Equal(t, direct[i].Seq, rep.Events[i].Seq, "replay order must match the log")
		assert.Equal(t, direct[i].Type, rep.Events[i].Type)
	}
	assert.Equal(t, "seed-1", rep.Seed)
}

func TestReconstruct_RangeFilterKeepsTotal(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, true)

	full, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)

	ranged, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", From: 0, To: 4})
	require.NoError(t, err)

	require.Len(t, ranged.Events, 5)
	assert.Equal(t, full.Events[:5], ranged.Events, "ranged replay must equal the head of the full replay")
	assert.Equal(t, full.TotalEvents, ranged.TotalEvents, "TotalEvents ignores the range filter")
}

func TestReconstruct_FinalStandingsVerbatim(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, true)

	// Range excludes the final_standings event; standings still come from
	// the full log.
	rep, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", From: 0, To: 1})
	require.NoError(t, err)
	require.Len(t, rep.FinalStandings, 2)
	assert.Equal(t, "m1", rep.FinalStandings[0].ManagerID)
	assert.Equal(t, 1, rep.FinalStandings[0].Rank)
}

func TestReconstruct_NoFinalStandingsIsNil(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, false)

	rep, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)
	assert.Nil(t, rep.FinalStandings, "missing final standings is not an error")
}

func TestFull_SelectsEntireLog(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, true)

	explicit, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)

	full, err := Reconstruct(ctx, sink, Full("match-1"))
	require.NoError(t, err)
	assert.Equal(t, explicit.Events, full.Events)
	assert.Equal(t, explicit.TotalEvents, len(full.Events))

	// The zero value is a one-event range, not the whole log.
	zero, err := Reconstruct(ctx, sink, Request{MatchID: "match-1"})
	require.NoError(t, err)
	require.Len(t, zero.Events, 1)
	assert.Equal(t, int64(0), zero.Events[0].Seq)
}

func TestReconstruct_UnknownMatch(t *testing.T) {
	ctx := context.Background()
	sink := store.NewMemory()

	_, err := Reconstruct(ctx, sink, Request{MatchID: "ghost", To: -1})
	assert.ErrorIs(t, err, store.ErrUnknownMatch)
}

func TestReplay_DigestStable(t *testing.T) {
	ctx := context.Background()
	sink := seedSink(t, true)

	a, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)
	b, err := Reconstruct(ctx, sink, Request{MatchID: "match-1", To: -1})
	require.NoError(t, err)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db, "reconstruction must be deterministic")
}
