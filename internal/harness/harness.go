// Package harness provides a scripted conformance framework for the match
// orchestrator.
//
// A scenario is a YAML document carrying a match configuration, a seed, an
// ordered script of engine interactions (timer fires and manager
// submissions), and assertions over the resulting event log and final
// standings. Scenarios run against the real engine with an in-memory event
// sink and a manually driven scheduler, so execution is fully deterministic:
// the same scenario file always yields the same transcript, which makes the
// transcripts suitable for golden file comparison.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"pitwall/internal/broadcast"
	"pitwall/internal/config"
	"pitwall/internal/engine"
	"pitwall/internal/store"
	"pitwall/internal/testutil"
)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	eng     *engine.Engine
	sink    *store.Memory
	sched   *testutil.ManualScheduler
	matchID string
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory sink for isolation. Step failures
// and assertion failures are collected in the result rather than aborting,
// so a failing scenario reports everything that went wrong; an error return
// means the scenario could not be executed at all (bad config, engine
// refusal).
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	sink := store.NewMemory()
	sched := testutil.NewManualScheduler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(sink, broadcast.Nop{}, sched, logger,
		engine.WithIDGenerator(engine.NewFixedIDGenerator("scenario-"+scenario.Name)))

	ctx := context.Background()
	matchID, err := eng.CreateMatch(ctx, cfg, scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	h := &Harness{eng: eng, sink: sink, sched: sched, matchID: matchID, logger: logger}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	records, err := sink.Query(ctx, matchID, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("query event log: %w", err)
	}
	result.Transcript = transcribe(records)

	snap, err := eng.Snapshot(matchID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	result.Snapshot = snap

	actx := &AssertionContext{Records: records, Snapshot: snap}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// scenarioConfig validates the scenario's config document against the
// production schema. An absent document falls back to the default roster.
func scenarioConfig(scenario *Scenario) (config.Config, error) {
	if len(scenario.Config) == 0 {
		return config.Default(), nil
	}
	// CUE accepts JSON, so the YAML-decoded document goes through the
	// same schema path as a config file on disk.
	data, err := json.Marshal(scenario.Config)
	if err != nil {
		return config.Config{}, err
	}
	return config.Parse(data, scenario.Name+".json")
}

// executeStep runs one scripted step, recording failures in the result.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	switch step.Do {
	case StepFireTimer:
		if !h.sched.FireNext() {
			result.AddError(fmt.Sprintf("steps[%d]: no live timer to fire", index))
		}
	case StepFireAll:
		h.sched.FireAll()
	case StepBid:
		out := h.eng.SubmitBid(ctx, h.matchID, step.Manager, step.Amount)
		h.checkOutcome(index, step, out, result)
	case StepStrategy:
		out := h.eng.SubmitStrategy(ctx, h.matchID, step.Manager, step.Text)
		h.checkOutcome(index, step, out, result)
	case StepResult:
		round := step.Round
		if round == 0 {
			snap, err := h.eng.Snapshot(h.matchID)
			if err != nil {
				result.AddError(fmt.Sprintf("steps[%d]: snapshot: %v", index, err))
				return
			}
			round = snap.Round
		}
		out := h.eng.ApplyExecutionResult(ctx, h.matchID, step.Manager, round, step.submission())
		h.checkOutcome(index, step, out, result)
	}
}

// checkOutcome compares a submission outcome against the step's expect
// clause. A step without one must succeed.
func (h *Harness) checkOutcome(index int, step Step, out engine.Outcome, result *Result) {
	if step.Expect == nil {
		if !out.Success {
			result.AddError(fmt.Sprintf("steps[%d]: %s by %s rejected: %s",
				index, step.Do, step.Manager, out.Error))
		}
		return
	}
	if out.Success != step.Expect.Success {
		result.AddError(fmt.Sprintf("steps[%d]: %s by %s: expected success=%v, got success=%v (error=%q)",
			index, step.Do, step.Manager, step.Expect.Success, out.Success, out.Error))
		return
	}
	if !step.Expect.Success && step.Expect.Error != "" && out.Error != step.Expect.Error {
		result.AddError(fmt.Sprintf("steps[%d]: %s by %s: expected error %q, got %q",
			index, step.Do, step.Manager, step.Expect.Error, out.Error))
	}
}
