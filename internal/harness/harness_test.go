package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptedScenario() *Scenario {
	return &Scenario{
		Name:        "scripted",
		Description: "one scripted round",
		Seed:        "harness-seed",
		Config: map[string]interface{}{
			"rounds": 1,
			"managers": []interface{}{
				map[string]interface{}{"id": "alpha", "bot": false},
				map[string]interface{}{"id": "beta", "bot": false},
			},
		},
		Steps: []Step{
			{Do: StepFireTimer},
			{Do: StepBid, Manager: "alpha", Amount: 10},
			{Do: StepBid, Manager: "beta", Amount: 20},
			{Do: StepStrategy, Manager: "alpha", Text: "hold"},
			{Do: StepStrategy, Manager: "beta", Text: "push"},
			{Do: StepResult, Manager: "alpha", Round: 1, Total: 4, Passed: 4},
			{Do: StepResult, Manager: "beta", Round: 1, Total: 4, Passed: 2},
			{Do: StepFireTimer},
		},
		Assertions: []Assertion{
			{Type: AssertFinalStatus, Status: "completed"},
			{Type: AssertStandings, Leader: "alpha"},
		},
	}
}

func TestRun_ScriptedScenarioPasses(t *testing.T) {
	result, err := Run(scriptedScenario())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	// The transcript covers the whole log: opening transition through
	// match_complete.
	require.NotEmpty(t, result.Transcript)
	assert.Equal(t, "phase_transition", result.Transcript[0].Type)
	assert.Equal(t, "briefing", result.Transcript[0].Detail)
	last := result.Transcript[len(result.Transcript)-1]
	assert.Equal(t, "match_complete", last.Type)
	assert.Equal(t, "alpha", last.Detail)
}

func TestRun_FailedAssertionIsReported(t *testing.T) {
	s := scriptedScenario()
	s.Assertions = []Assertion{
		{Type: AssertStandings, Leader: "beta"},
		{Type: AssertEventCount, Event: "bid_submitted", Count: 99},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected leader "beta"`)
	assert.Contains(t, result.Errors[1], "expected 99 bid_submitted events")
}

func TestRun_ExpectClauseMatchesRejection(t *testing.T) {
	s := scriptedScenario()
	// A bid during briefing must be rejected with the exact reason.
	s.Steps = append([]Step{
		{Do: StepBid, Manager: "alpha", Amount: 10,
			Expect: &ExpectClause{Success: false, Error: "not in bidding phase"}},
	}, s.Steps...)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnexpectedRejectionFailsStep(t *testing.T) {
	s := scriptedScenario()
	s.Steps = append(s.Steps, Step{Do: StepBid, Manager: "alpha", Amount: 10})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "bid by alpha rejected")
}

func TestRun_FireTimerWithNothingPendingFails(t *testing.T) {
	s := scriptedScenario()
	s.Steps = append(s.Steps, Step{Do: StepFireTimer})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "no live timer to fire")
}

func TestRun_InvalidConfigFails(t *testing.T) {
	s := scriptedScenario()
	s.Config["rounds"] = 0

	_, err := Run(s)
	require.Error(t, err)
}

func TestRun_DefaultConfigWhenAbsent(t *testing.T) {
	s := &Scenario{
		Name:        "default-roster",
		Description: "bots play a full match unscripted",
		Seed:        "default-seed",
		Steps:       []Step{{Do: StepFireAll}},
		Assertions: []Assertion{
			{Type: AssertFinalStatus, Status: "completed"},
			{Type: AssertEventCount, Event: "match_complete", Count: 1},
			// 4 bots over 5 rounds: the bot delay fires before the phase
			// deadline, so every bot bids every round.
			{Type: AssertEventCount, Event: "bid_submitted", Count: 20},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGoldenScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
