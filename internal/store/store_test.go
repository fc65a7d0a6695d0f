package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitwall/internal/event"
)

// sinks under test share one contract; run every test against both.
func withSinks(t *testing.T, fn func(t *testing.T, s Sink)) {
	t.Run("sqlite", func(t *testing.T) {
		st, err := Open(":memory:")
		require.NoError(t, err)
		defer st.Close()
		fn(t, st)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
}

func TestSink_AppendAssignsGaplessSequence(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))

		for i := int64(0); i < 5; i++ {
			seq, err := s.Append(ctx, "match-1", event.BidSubmitted{Round: 1, ManagerID: "m1", Amount: int(i)})
			require.NoError(t, err)
			assert.Equal(t, i, seq, "sequence starts at 0 with no gaps")
		}
	})
}

func TestSink_SequencesAreIndependentPerMatch(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))
		require.NoError(t, s.Register(ctx, "match-2", "seed-2"))

		seq1, err := s.Append(ctx, "match-1", event.MatchComplete{Rounds: 5})
		require.NoError(t, err)
		seq2, err := s.Append(ctx, "match-2", event.MatchComplete{Rounds: 5})
		require.NoError(t, err)

		assert.Equal(t, int64(0), seq1)
		assert.Equal(t, int64(0), seq2)
	})
}

func TestSink_ConcurrentAppends(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))

		const appends = 50
		var wg sync.WaitGroup
		seqs := make(chan int64, appends)
		for i := 0; i < appends; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				seq, err := s.Append(ctx, "match-1", event.BidSubmitted{Round: 1, ManagerID: fmt.Sprintf("m%d", n), Amount: n})
				assert.NoError(t, err)
				seqs <- seq
			}(i)
		}
		wg.Wait()
		close(seqs)

		seen := make(map[int64]bool)
		for seq := range seqs {
			assert.False(t, seen[seq], "seq %d assigned twice", seq)
			seen[seq] = true
		}
		assert.Len(t, seen, appends)

		records, err := s.Query(ctx, "match-1", 0, -1)
		require.NoError(t, err)
		require.Len(t, records, appends)
		for i, rec := range records {
			assert.Equal(t, int64(i), rec.Seq, "query order must follow seq with no gaps")
		}
	})
}

func TestSink_QueryRange(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))
		for i := 0; i < 10; i++ {
			_, err := s.Append(ctx, "match-1", event.BidSubmitted{Round: 1, ManagerID: "m1", Amount: i})
			require.NoError(t, err)
		}

		records, err := s.Query(ctx, "match-1", 3, 6)
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, int64(3), records[0].Seq)
		assert.Equal(t, int64(6), records[3].Seq)
	})
}

func TestSink_PayloadRoundTrip(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))

		want := event.FinalStandings{Standings: []event.Standing{
			{ManagerID: "m1", Name: "Ada", Total: 3250.5, Budget: 900, Rank: 1},
			{ManagerID: "m2", Name: "Grace", Total: 3100, Budget: 1000, Rank: 2},
		}}
		_, err := s.Append(ctx, "match-1", want)
		require.NoError(t, err)

		records, err := s.Query(ctx, "match-1", 0, -1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, event.TypeFinalStandings, records[0].Type)
		assert.Equal(t, want, records[0].Payload)
	})
}

func TestSink_UnknownMatch(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()

		_, err := s.Query(ctx, "nope", 0, -1)
		assert.ErrorIs(t, err, ErrUnknownMatch)

		_, err = s.Seed(ctx, "nope")
		assert.ErrorIs(t, err, ErrUnknownMatch)

		_, err = s.Append(ctx, "nope", event.MatchComplete{})
		assert.Error(t, err)
	})
}

func TestSink_RegisterTwice(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		require.NoError(t, s.Register(ctx, "match-1", "seed-1"))
		assert.Error(t, s.Register(ctx, "match-1", "seed-other"))
	})
}

// lister is the optional match-listing surface both sinks implement.
type lister interface {
	Matches(ctx context.Context) ([]string, error)
}

func TestSink_MatchesListing(t *testing.T) {
	withSinks(t, func(t *testing.T, s Sink) {
		ctx := context.Background()
		l, ok := s.(lister)
		require.True(t, ok)

		ids, err := l.Matches(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, s.Register(ctx, "match-b", "seed-b"))
		require.NoError(t, s.Register(ctx, "match-a", "seed-a"))

		ids, err = l.Matches(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"match-a", "match-b"}, ids)
	})
}

func TestFailing_AppendUnavailable(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	require.NoError(t, inner.Register(ctx, "match-1", "seed-1"))

	f := NewFailing(inner)
	f.SetDown(true)
	_, err := f.Append(ctx, "match-1", event.MatchComplete{})
	assert.Error(t, err)

	f.SetDown(false)
	_, err = f.Append(ctx, "match-1", event.MatchComplete{})
	assert.NoError(t, err)
}
