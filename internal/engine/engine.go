// Package engine orchestrates live matches.
//
// One Engine owns a registry of independent matches. Within a match every
// state-mutating operation (submit bid, submit strategy, apply execution
// result, timer-fired advance) is serialized by the match's mutex, so no
// two operations interleave their read-modify-write on the same state.
// Matches progress concurrently with respect to each other.
//
// The engine never blocks on external I/O inline: phase advancement is
// triggered either by a caller action or by a previously scheduled deferred
// callback. Persistence and notification failures are logged and swallowed;
// they never halt or corrupt match progression.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"pitwall/internal/broadcast"
	"pitwall/internal/config"
	"pitwall/internal/decision"
	"pitwall/internal/match"
	"pitwall/internal/store"
	"pitwall/internal/timer"
)

// IDGenerator produces match IDs. Implemented by UUIDv7Generator
// (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 match IDs.
type UUIDv7Generator struct{}

// Generate implements IDGenerator.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined IDs for deterministic tests.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator returning ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate implements IDGenerator. Panics when the fixed supply runs out:
// a test asking for more IDs than it provided is a test bug.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// ProviderFactory builds the decision provider for a roster slot. Returning
// nil marks the manager as human (the engine never acts for them).
type ProviderFactory func(m match.Manager) decision.Provider

// defaultProviders gives every bot a seeded provider.
func defaultProviders(m match.Manager) decision.Provider {
	if !m.Bot {
		return nil
	}
	return decision.NewSeeded(decision.Personality(m.Personality))
}

// Engine orchestrates matches against its injected collaborators. There are
// no package-level singletons: construct one Engine at process start and
// pass it to every entry point.
type Engine struct {
	sink      store.Sink
	bcast     broadcast.Broadcaster
	sched     timer.Scheduler
	logger    *slog.Logger
	ids       IDGenerator
	providers ProviderFactory

	mu      sync.RWMutex
	matches map[string]*Match
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator substitutes the match ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithProviderFactory substitutes bot decision providers.
func WithProviderFactory(f ProviderFactory) Option {
	return func(e *Engine) { e.providers = f }
}

// New creates an Engine.
func New(sink store.Sink, bcast broadcast.Broadcaster, sched timer.Scheduler, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		sink:      sink,
		bcast:     bcast,
		sched:     sched,
		logger:    logger,
		ids:       UUIDv7Generator{},
		providers: defaultProviders,
		matches:   make(map[string]*Match),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateMatch registers a new match and enters round 1 briefing.
//
// The sink registration happens before the first internal transition, so
// the opening phase_transition event is never dropped; match creation
// fails instead if the sink cannot record the match's existence.
func (e *Engine) CreateMatch(ctx context.Context, cfg config.Config, seed string) (string, error) {
	if len(cfg.Managers) == 0 {
		return "", fmt.Errorf("create match: empty roster")
	}

	id := e.ids.Generate()
	if err := e.sink.Register(ctx, id, seed); err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}

	m := newMatch(e, id, seed, cfg)

	e.mu.Lock()
	e.matches[id] = m
	e.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.enterInitialPhase(ctx)

	e.logger.Info("match created",
		"match_id", id,
		"seed", seed,
		"rounds", cfg.Rounds,
		"managers", len(cfg.Managers),
	)
	return id, nil
}

// lookup returns the match runtime, or nil.
func (e *Engine) lookup(matchID string) *Match {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matches[matchID]
}

// SubmitBid applies a sealed bid for the current round's auction.
func (e *Engine) SubmitBid(ctx context.Context, matchID, managerID string, amount int) Outcome {
	m := e.lookup(matchID)
	if m == nil {
		return failure(managerID, 0, "unknown match")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitBid(ctx, managerID, amount)
}

// SubmitStrategy applies a strategy text for the current round.
func (e *Engine) SubmitStrategy(ctx context.Context, matchID, managerID, strategy string) Outcome {
	m := e.lookup(matchID)
	if m == nil {
		return failure(managerID, 0, "unknown match")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitStrategy(ctx, managerID, strategy)
}

// ApplyExecutionResult scores a manager's harness result for the given
// round.
func (e *Engine) ApplyExecutionResult(ctx context.Context, matchID, managerID string, round int, res HarnessSubmission) Outcome {
	m := e.lookup(matchID)
	if m == nil {
		return failure(managerID, round, "unknown match")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyExecutionResult(ctx, managerID, round, res)
}

// Snapshot returns a read-only view of a match.
func (e *Engine) Snapshot(matchID string) (Snapshot, error) {
	m := e.lookup(matchID)
	if m == nil {
		return Snapshot{}, fmt.Errorf("snapshot: unknown match %s", matchID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(), nil
}
