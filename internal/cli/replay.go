package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pitwall/internal/replay"
	"pitwall/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	MatchID  string // optional, all matches when empty
	From     int64
	To       int64
	Verify   bool
}

// ReplayMatchResult holds the replay result for a single match.
type ReplayMatchResult struct {
	MatchID        string `json:"match_id"`
	Seed           string `json:"seed"`
	Events         int    `json:"events"`
	TotalEvents    int    `json:"total_events"`
	Winner         string `json:"winner,omitempty"`
	Digest         string `json:"digest"`
	Deterministic  bool   `json:"deterministic"`
	HasFinalResult bool   `json:"has_final_result"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Matches          []ReplayMatchResult `json:"matches"`
	TotalMatches     int                 `json:"total_matches"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct match history from the event log",
		Long: `Reconstruct one or all matches from their append-only event logs.

Final standings are taken verbatim from the recorded final_standings
event, never recomputed. With --verify, each match is reconstructed
twice and the canonical digests compared.

Exit codes:
  0 - Reconstruction succeeded (and verification passed, if requested)
  1 - Verification failed (digests differ between reconstructions)
  2 - Command error (database not found, unknown match, etc.)

Examples:
  pitwall replay --db ./pitwall.db
  pitwall replay --db ./pitwall.db --match 0198ad... --from 0 --to 20
  pitwall replay --db ./pitwall.db --verify --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.MatchID, "match", "", "replay a specific match only")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first sequence number to include")
	cmd.Flags().Int64Var(&opts.To, "to", -1, "last sequence number to include (-1 for unbounded)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "reconstruct twice and compare canonical digests")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var matchIDs []string
	if opts.MatchID != "" {
		matchIDs = []string{opts.MatchID}
	} else {
		matchIDs, err = st.Matches(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list matches", err)
		}
	}

	if len(matchIDs) == 0 {
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), CLIResponse{
				Status: "ok",
				Data:   ReplayResult{Matches: []ReplayMatchResult{}, AllDeterministic: true},
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No matches found in database.")
		return nil
	}

	result := ReplayResult{
		Matches:          make([]ReplayMatchResult, 0, len(matchIDs)),
		TotalMatches:     len(matchIDs),
		AllDeterministic: true,
	}

	for _, id := range matchIDs {
		matchResult, err := replayMatch(ctx, st, id, opts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay match %s", id), err)
		}
		result.Matches = append(result.Matches, matchResult)
		if !matchResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayMatch reconstructs one match, optionally twice for verification.
func replayMatch(ctx context.Context, st *store.Store, matchID string, opts *ReplayOptions) (ReplayMatchResult, error) {
	req := replay.Request{MatchID: matchID, From: opts.From, To: opts.To}

	rep, err := replay.Reconstruct(ctx, st, req)
	if err != nil {
		return ReplayMatchResult{}, err
	}
	digest, err := rep.Digest()
	if err != nil {
		return ReplayMatchResult{}, fmt.Errorf("digest: %w", err)
	}

	deterministic := true
	if opts.Verify {
		again, err := replay.Reconstruct(ctx, st, req)
		if err != nil {
			return ReplayMatchResult{}, fmt.Errorf("second reconstruction failed: %w", err)
		}
		againDigest, err := again.Digest()
		if err != nil {
			return ReplayMatchResult{}, fmt.Errorf("second digest: %w", err)
		}
		deterministic = digest == againDigest
	}

	winner := ""
	if len(rep.FinalStandings) > 0 {
		winner = rep.FinalStandings[0].ManagerID
	}

	return ReplayMatchResult{
		MatchID:        matchID,
		Seed:           rep.Seed,
		Events:         len(rep.Events),
		TotalEvents:    rep.TotalEvents,
		Winner:         winner,
		Digest:         digest,
		Deterministic:  deterministic,
		HasFinalResult: rep.FinalStandings != nil,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "replay verification failed",
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d match(es)\n\n", result.TotalMatches)

	for _, m := range result.Matches {
		status := "✓"
		if !m.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Match: %s (seed %s)\n", status, m.MatchID, m.Seed)
		fmt.Fprintf(w, "  Events: %d of %d\n", m.Events, m.TotalEvents)
		if m.HasFinalResult {
			fmt.Fprintf(w, "  Winner: %s\n", m.Winner)
		} else {
			fmt.Fprintln(w, "  Winner: match not finished")
		}
		if verbose {
			fmt.Fprintf(w, "  Digest: %s\n", m.Digest)
		}
		if !m.Deterministic {
			fmt.Fprintln(w, "  Warning: reconstructions disagree!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		return nil
	}
	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
