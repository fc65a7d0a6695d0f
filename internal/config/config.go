// Package config loads and validates match configuration.
//
// The schema lives in an embedded CUE file: user files are compiled,
// unified with #Config, validated for concreteness, and decoded. Defaults
// come from the schema, so a minimal file only lists managers.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"pitwall/internal/match"
)

//go:embed schema.cue
var schemaCUE string

// Manager configures one roster slot.
type Manager struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Bot         bool   `json:"bot"`
	Personality string `json:"personality"`
}

// Phases holds the nominal phase durations in seconds.
type Phases struct {
	Briefing  float64 `json:"briefing"`
	Bidding   float64 `json:"bidding"`
	Strategy  float64 `json:"strategy"`
	Execution float64 `json:"execution"`
	Scoring   float64 `json:"scoring"`
}

// Config is a fully validated match configuration.
type Config struct {
	Rounds          int       `json:"rounds"`
	StartingBudget  int       `json:"starting_budget"`
	BotDelaySeconds float64   `json:"bot_delay_seconds"`
	Phases          Phases    `json:"phases"`
	Managers        []Manager `json:"managers"`
}

// Default is the built-in 4-bot configuration used when no file is given.
func Default() Config {
	return Config{
		Rounds:          5,
		StartingBudget:  1000,
		BotDelaySeconds: 2,
		Phases:          Phases{Briefing: 20, Bidding: 30, Strategy: 45, Execution: 120, Scoring: 10},
		Managers: []Manager{
			{ID: "bot-1", Name: "Apex", Bot: true, Personality: "aggressive"},
			{ID: "bot-2", Name: "Baseline", Bot: true, Personality: "balanced"},
			{ID: "bot-3", Name: "Clutch", Bot: true, Personality: "balanced"},
			{ID: "bot-4", Name: "Drift", Bot: true, Personality: "cautious"},
		},
	}
}

// Load reads, validates, and decodes a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates raw CUE config bytes against the embedded schema.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile embedded schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return Config{}, fmt.Errorf("compile %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", filename, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", filename, err)
	}

	if err := cfg.check(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// check covers the constraints the schema cannot express comfortably.
func (c Config) check() error {
	seen := make(map[string]bool, len(c.Managers))
	for _, m := range c.Managers {
		if seen[m.ID] {
			return fmt.Errorf("duplicate manager id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// PhaseDuration returns the nominal duration for a phase. The terminal
// phase is always 0.
func (c Config) PhaseDuration(p match.Phase) time.Duration {
	seconds := 0.0
	switch p {
	case match.PhaseBriefing:
		seconds = c.Phases.Briefing
	case match.PhaseBidding:
		seconds = c.Phases.Bidding
	case match.PhaseStrategy:
		seconds = c.Phases.Strategy
	case match.PhaseExecution:
		seconds = c.Phases.Execution
	case match.PhaseScoring:
		seconds = c.Phases.Scoring
	case match.PhaseFinalStandings:
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// BotDelay is how long the engine waits after opening a phase before
// acting for idle bots.
func (c Config) BotDelay() time.Duration {
	return time.Duration(c.BotDelaySeconds * float64(time.Second))
}

// Roster converts the configuration to match.Manager values.
func (c Config) Roster() []match.Manager {
	roster := make([]match.Manager, len(c.Managers))
	for i, m := range c.Managers {
		roster[i] = match.Manager{ID: m.ID, Name: m.Name, Bot: m.Bot, Personality: m.Personality}
	}
	return roster
}
