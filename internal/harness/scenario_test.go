package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: valid
description: a valid scenario
seed: s
steps:
  - do: fire_timer
  - do: bid
    manager: alpha
    amount: 10
assertions:
  - type: final_status
    status: active
`

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "valid", s.Name)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, StepBid, s.Steps[1].Do)
	assert.Equal(t, 10, s.Steps[1].Amount)
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
seed: s
steps:
  - do: fire_timer
assertion:
  - type: final_status
    status: active
`))
	require.Error(t, err, "singular 'assertion' is a typo, not an alias")
}

func TestParseScenario_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", `
description: d
seed: s
steps: [{do: fire_timer}]
assertions: [{type: final_status, status: active}]
`, "name is required"},
		{"no seed", `
name: n
description: d
steps: [{do: fire_timer}]
assertions: [{type: final_status, status: active}]
`, "seed is required"},
		{"no steps", `
name: n
description: d
seed: s
assertions: [{type: final_status, status: active}]
`, "steps list is required"},
		{"no assertions", `
name: n
description: d
seed: s
steps: [{do: fire_timer}]
`, "assertions list is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseScenario_StepValidation(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: n
description: d
seed: s
steps:
  - do: bid
    amount: 10
assertions: [{type: final_status, status: active}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager is required for bid")

	_, err = ParseScenario([]byte(`
name: n
description: d
seed: s
steps:
  - do: teleport
assertions: [{type: final_status, status: active}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step kind "teleport"`)
}

func TestParseScenario_AssertionValidation(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: n
description: d
seed: s
steps: [{do: fire_timer}]
assertions:
  - type: event_count
    count: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event is required for event_count")

	_, err = ParseScenario([]byte(`
name: n
description: d
seed: s
steps: [{do: fire_timer}]
assertions:
  - type: guesswork
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown assertion type "guesswork"`)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
