package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitwall/internal/event"
	"pitwall/internal/store"
)

// seedReplayDB writes a small finished match into a fresh database file.
func seedReplayDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Register(ctx, "match-a", "seed-a"))

	payloads := []event.Payload{
		event.PhaseTransition{Round: 1, To: "briefing", Challenge: "compact a log-structured index"},
		event.PhaseTransition{Round: 1, From: "briefing", To: "bidding"},
		event.BidSubmitted{Round: 1, ManagerID: "alpha", Amount: 10},
		event.FinalStandings{Standings: []event.Standing{
			{ManagerID: "alpha", Name: "Alpha", Total: 900, Budget: 990, Rank: 1},
		}},
		event.MatchComplete{Rounds: 1, Winner: "alpha"},
	}
	for _, p := range payloads {
		_, err := st.Append(ctx, "match-a", p)
		require.NoError(t, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayCommand_Text(t *testing.T) {
	db := seedReplayDB(t)

	out, err := runCLI(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 match(es)")
	assert.Contains(t, out, "match-a (seed seed-a)")
	assert.Contains(t, out, "Events: 5 of 5")
	assert.Contains(t, out, "Winner: alpha")
}

func TestReplayCommand_RangeKeepsTotal(t *testing.T) {
	db := seedReplayDB(t)

	out, err := runCLI(t, "replay", "--db", db, "--match", "match-a", "--from", "1", "--to", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Events: 2 of 5")
	// Standings come from the full log even when ranged out of view.
	assert.Contains(t, out, "Winner: alpha")
}

func TestReplayCommand_VerifyJSON(t *testing.T) {
	db := seedReplayDB(t)

	out, err := runCLI(t, "replay", "--db", db, "--verify", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ReplayResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.AllDeterministic)
	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Deterministic)
	assert.NotEmpty(t, result.Matches[0].Digest)
}

func TestReplayCommand_UnknownMatch(t *testing.T) {
	db := seedReplayDB(t)

	_, err := runCLI(t, "replay", "--db", db, "--match", "no-such-match")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_EmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	st.Close()

	out, err := runCLI(t, "replay", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No matches found")
}

func TestReplayCommand_RequiresDB(t *testing.T) {
	_, err := runCLI(t, "replay")
	require.Error(t, err)
}
