package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pitwall/internal/engine"
	"pitwall/internal/scoring"
)

// Scenario defines a scripted conformance scenario.
// Scenarios drive a match through the engine step by step and assert on
// the resulting event log and final standings.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name for transcript comparison.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the match seed. Required so reruns are reproducible.
	Seed string `yaml:"seed"`

	// Config holds the match configuration document. It is validated
	// against the same schema as production configs; when empty the
	// built-in default roster is used. Scripted scenarios normally set
	// bot: false on every manager so the scenario controls all actions.
	Config map[string]interface{} `yaml:"config,omitempty"`

	// Steps is the ordered script of engine interactions.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final event log and match state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted interaction with the engine.
type Step struct {
	// Do selects the step kind:
	//   - "fire_timer": fire the next live scheduled timer
	//   - "fire_all":   drain every scheduled timer, including rearms
	//   - "bid":        submit a sealed bid for Manager
	//   - "strategy":   submit strategy Text for Manager
	//   - "result":     apply an execution result for Manager
	Do string `yaml:"do"`

	// Manager is the acting manager (bid, strategy, result).
	Manager string `yaml:"manager,omitempty"`

	// Amount is the sealed bid amount (bid).
	Amount int `yaml:"amount,omitempty"`

	// Text is the strategy text (strategy).
	Text string `yaml:"text,omitempty"`

	// Round the result belongs to (result). Defaults to the current
	// round when 0.
	Round int `yaml:"round,omitempty"`

	// Harness outcome fields (result).
	Total      int     `yaml:"total,omitempty"`
	Passed     int     `yaml:"passed,omitempty"`
	DurationMS int     `yaml:"duration_ms,omitempty"`
	MemoryMiB  int     `yaml:"memory_mib,omitempty"`
	Bonus      float64 `yaml:"bonus,omitempty"`

	// Expect validates the submission outcome. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// submission converts the step's harness outcome fields.
func (st Step) submission() engine.HarnessSubmission {
	return engine.HarnessSubmission{
		Result: scoring.HarnessResult{
			TotalTests:  st.Total,
			PassedTests: st.Passed,
			Duration:    time.Duration(st.DurationMS) * time.Millisecond,
			MemoryBytes: int64(st.MemoryMiB) * 1024 * 1024,
		},
		RawBonus: st.Bonus,
	}
}

// ExpectClause specifies the expected outcome of a submission step.
type ExpectClause struct {
	// Success is the expected outcome flag.
	Success bool `yaml:"success"`

	// Error is the expected rejection reason. Only checked when
	// Success is false.
	Error string `yaml:"error,omitempty"`
}

// Step kind constants.
const (
	StepFireTimer = "fire_timer"
	StepFireAll   = "fire_all"
	StepBid       = "bid"
	StepStrategy  = "strategy"
	StepResult    = "result"
)

// Assertion validates the event log or final match state.
type Assertion struct {
	// Type selects the assertion:
	//   - "event_count":    Event appears exactly Count times
	//   - "event_order":    Events appear as a subsequence of the log
	//   - "event_contains": Event appears with matching Manager/Round
	//   - "final_status":   match status equals Status
	//   - "standings":      final ranking starts with Leader or equals Order
	Type string `yaml:"type"`

	// Event is the event type name (event_count, event_contains).
	Event string `yaml:"event,omitempty"`

	// Count is the expected occurrence count (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected subsequence (event_order).
	Events []string `yaml:"events,omitempty"`

	// Manager and Round narrow event_contains matches. Zero values
	// match anything.
	Manager string `yaml:"manager,omitempty"`
	Round   int    `yaml:"round,omitempty"`

	// Status is the expected final match status (final_status).
	Status string `yaml:"status,omitempty"`

	// Leader is the expected first-ranked manager (standings).
	Leader string `yaml:"leader,omitempty"`

	// Order is the complete expected ranking (standings). Optional;
	// when set it must match exactly.
	Order []string `yaml:"order,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertEventContains = "event_contains"
	AssertFinalStatus   = "final_status"
	AssertStandings     = "standings"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation so typos
// like "assertion:" instead of "assertions:" fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Seed == "" {
		return fmt.Errorf("seed is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Do {
	case StepFireTimer, StepFireAll:
		// No fields beyond Do.
	case StepBid:
		if st.Manager == "" {
			return fmt.Errorf("steps[%d]: manager is required for bid", index)
		}
	case StepStrategy:
		if st.Manager == "" {
			return fmt.Errorf("steps[%d]: manager is required for strategy", index)
		}
		if st.Text == "" && st.Expect == nil {
			return fmt.Errorf("steps[%d]: text is required for strategy", index)
		}
	case StepResult:
		if st.Manager == "" {
			return fmt.Errorf("steps[%d]: manager is required for result", index)
		}
		if st.Total < 0 || st.Passed < 0 {
			return fmt.Errorf("steps[%d]: total and passed must be non-negative", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: do is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown step kind %q", index, st.Do)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertFinalStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for final_status", index)
		}
	case AssertStandings:
		if a.Leader == "" && len(a.Order) == 0 {
			return fmt.Errorf("assertions[%d]: leader or order is required for standings", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
