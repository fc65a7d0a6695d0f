package engine

import (
	"context"
	"sync"
	"time"

	"pitwall/internal/auction"
	"pitwall/internal/config"
	"pitwall/internal/decision"
	"pitwall/internal/event"
	"pitwall/internal/match"
	"pitwall/internal/rng"
	"pitwall/internal/scoring"
	"pitwall/internal/timer"
)

// Match is the runtime wrapper around one match's state. mu serializes
// every state-mutating operation; the timer handles are owned exclusively
// by this struct and cancelled before any reschedule.
type Match struct {
	eng *Engine
	cfg config.Config

	mu        sync.Mutex
	state     *match.State
	providers map[string]decision.Provider

	phaseTimer timer.Handle
	botTimer   timer.Handle
	deadline   *time.Time
}

func newMatch(e *Engine, id, seed string, cfg config.Config) *Match {
	providers := make(map[string]decision.Provider, len(cfg.Managers))
	roster := cfg.Roster()
	for _, mgr := range roster {
		if p := e.providers(mgr); p != nil {
			providers[mgr.ID] = p
		}
	}
	return &Match{
		eng:       e,
		cfg:       cfg,
		state:     match.NewState(id, seed, cfg.Rounds, cfg.StartingBudget, roster),
		providers: providers,
	}
}

// challengePool is the fixed set of round challenges; selection is seeded
// per round so replays brief identical tasks.
var challengePool = []string{
	"implement a rate limiter with burst credit",
	"deduplicate a stream under a memory ceiling",
	"schedule jobs with precedence constraints",
	"compact a log-structured index",
	"reconcile two replicas with vector clocks",
	"parse and validate nested telemetry frames",
	"route orders through a venue graph",
	"balance shards across heterogeneous nodes",
}

func challengeFor(seed string, round int) string {
	gen := rng.New(seed, "challenge", round)
	return challengePool[gen.Intn(len(challengePool))]
}

// --- event emission -------------------------------------------------------

// append writes one event, swallowing sink failures: gameplay continues and
// the event is lost for replay purposes. Successful appends are broadcast
// fire-and-forget.
func (m *Match) append(ctx context.Context, p event.Payload) {
	seq, err := m.eng.sink.Append(ctx, m.state.ID, p)
	if err != nil {
		m.eng.logger.Error("event append failed; continuing",
			"match_id", m.state.ID,
			"type", p.EventType(),
			"round", m.state.Machine.Round(),
			"phase", m.state.Machine.Phase(),
			"error", err,
		)
		return
	}
	m.eng.bcast.Emit(m.state.ID, event.Record{
		MatchID: m.state.ID,
		Seq:     seq,
		Type:    p.EventType(),
		Payload: p,
		At:      time.Now().UTC(),
	})
}

func (m *Match) standings() []event.Standing {
	entries := m.state.Standings()
	out := make([]event.Standing, len(entries))
	for i, e := range entries {
		out[i] = event.Standing{
			ManagerID: e.Manager.ID,
			Name:      e.Manager.Name,
			Total:     e.Total,
			Budget:    e.Budget,
			Rank:      e.Rank,
		}
	}
	return out
}

// --- phase entry and advancement -------------------------------------------

// enterInitialPhase emits the opening transition into round 1 briefing and
// arms its timers. Caller holds m.mu.
func (m *Match) enterInitialPhase(ctx context.Context) {
	m.state.Round.Challenge = challengeFor(m.state.Seed, 1)
	m.append(ctx, event.PhaseTransition{
		Round:     1,
		From:      "",
		To:        string(match.PhaseBriefing),
		Challenge: m.state.Round.Challenge,
	})
	m.armTimers()
}

// advance performs one transition with all its side effects. Caller holds
// m.mu. The terminal transition is only ever produced here, so
// match.ErrInvalidTransition is unreachable; if it surfaces anyway it is a
// bug worth a loud log, not a recovery path.
func (m *Match) advance(ctx context.Context) {
	m.cancelTimers()

	fromPhase := m.state.Machine.Phase()
	fromRound := m.state.Machine.Round()

	// Leaving bidding resolves the auction against the sealed bids.
	var auctionResult *auction.Result
	if fromPhase == match.PhaseBidding {
		auctionResult = m.resolveAuction(fromRound)
	}

	tr, err := m.state.Machine.Advance()
	if err != nil {
		m.eng.logger.Error("advance past terminal phase", "match_id", m.state.ID, "error", err)
		return
	}

	transition := event.PhaseTransition{
		Round:   tr.Round,
		From:    string(tr.From),
		To:      string(tr.To),
		Auction: auctionResult,
	}

	if tr.RoundRolled {
		m.state.RollRound(tr.Round)
		m.state.Round.Challenge = challengeFor(m.state.Seed, tr.Round)
		transition.Challenge = m.state.Round.Challenge
	}

	m.append(ctx, transition)

	switch {
	case tr.Terminal:
		m.complete(ctx)
		return
	case tr.To == match.PhaseScoring:
		m.emitRoundResult(ctx, tr.Round)
	}

	m.armTimers()
}

// resolveAuction turns the round's sealed bids into a winner and budget
// deltas. Bids were validated at submission and budgets do not move during
// bidding, so resolution cannot reject here. Caller holds m.mu.
func (m *Match) resolveAuction(round int) *auction.Result {
	bids := make([]auction.Bid, 0, len(m.state.Round.Bids))
	for _, mgr := range m.state.Managers {
		amount, ok := m.state.Round.Bids[mgr.ID]
		if !ok {
			continue
		}
		bids = append(bids, auction.Bid{
			ManagerID: mgr.ID,
			Amount:    amount,
			Rank:      m.state.RankOf(mgr.ID),
			Budget:    m.state.Budgets[mgr.ID],
		})
	}

	result, err := auction.Resolve(bids, rng.New(m.state.Seed, "auction", round))
	if err != nil {
		m.eng.logger.Error("auction resolution rejected pre-validated bids",
			"match_id", m.state.ID, "round", round, "error", err)
		return nil
	}

	for id, delta := range result.BudgetDeltas {
		m.state.Budgets[id] += delta
	}
	if result.Winner != nil {
		m.state.Round.Winner = result.Winner.ManagerID
	}
	return result
}

func (m *Match) emitRoundResult(ctx context.Context, round int) {
	scores := make([]event.RoundScore, 0, len(m.state.Round.Scores))
	for _, mgr := range m.state.Managers {
		if res, ok := m.state.Round.Scores[mgr.ID]; ok {
			scores = append(scores, event.RoundScore{ManagerID: mgr.ID, Score: res.TotalScore})
		}
	}
	m.append(ctx, event.RoundResult{
		Round:     round,
		Winner:    m.state.Round.Winner,
		Scores:    scores,
		Standings: m.standings(),
	})
}

// complete handles terminal entry: final standings verbatim into the log,
// then match_complete. The terminal phase has duration 0 and schedules
// nothing.
func (m *Match) complete(ctx context.Context) {
	m.state.Status = match.StatusCompleted
	m.deadline = nil

	standings := m.standings()
	m.append(ctx, event.FinalStandings{Standings: standings})

	winner := ""
	if len(standings) > 0 {
		winner = standings[0].ManagerID
	}
	m.append(ctx, event.MatchComplete{Rounds: m.state.Machine.Rounds(), Winner: winner})

	m.eng.logger.Info("match complete",
		"match_id", m.state.ID,
		"winner", winner,
	)
}

// --- timers -----------------------------------------------------------------

// armTimers schedules the phase deadline and, for phases bots act in, the
// bot action delay. Caller holds m.mu; cancelTimers ran before any
// transition, so both handles are clear.
func (m *Match) armTimers() {
	round := m.state.Machine.Round()
	phase := m.state.Machine.Phase()

	d := m.cfg.PhaseDuration(phase)
	deadline := time.Now().Add(d)
	m.deadline = &deadline
	m.phaseTimer = m.eng.sched.Schedule(d, func() {
		m.forceAdvance(round, phase)
	})

	if len(m.providers) > 0 && (phase == match.PhaseBidding || phase == match.PhaseStrategy) {
		m.botTimer = m.eng.sched.Schedule(m.cfg.BotDelay(), func() {
			m.actForBots(round, phase)
		})
	}
}

// cancelTimers stops both pending deferred actions. A cancelled action
// never fires; a stale one that already slipped past Cancel is neutralized
// by the (round, phase) guard in its callback.
func (m *Match) cancelTimers() {
	if m.phaseTimer != nil {
		m.phaseTimer.Cancel()
		m.phaseTimer = nil
	}
	if m.botTimer != nil {
		m.botTimer.Cancel()
		m.botTimer = nil
	}
	m.deadline = nil
}

// forceAdvance is the phase deadline callback. Once the phase has been
// left, a stale invocation is a no-op: races with early completion must
// be idempotent.
func (m *Match) forceAdvance(round int, phase match.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != match.StatusActive ||
		m.state.Machine.Round() != round ||
		m.state.Machine.Phase() != phase {
		return
	}
	m.advance(context.Background())
}

// actForBots submits bids or strategies for every bot that has not acted a
// fixed delay after the phase opened. Decisions are pure given (context,
// derived generator), so replays see identical actions.
func (m *Match) actForBots(round int, phase match.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != match.StatusActive ||
		m.state.Machine.Round() != round ||
		m.state.Machine.Phase() != phase {
		return
	}

	ctx := context.Background()
	for _, mgr := range m.state.Managers {
		provider, ok := m.providers[mgr.ID]
		if !ok {
			continue
		}
		switch phase {
		case match.PhaseBidding:
			if _, acted := m.state.Round.Bids[mgr.ID]; acted {
				continue
			}
			amount := provider.Bid(decision.BidContext{
				Round:     round,
				Rounds:    m.state.Machine.Rounds(),
				Budget:    m.state.Budgets[mgr.ID],
				Rank:      m.state.RankOf(mgr.ID),
				Managers:  len(m.state.Managers),
				Challenge: m.state.Round.Challenge,
			}, rng.New(m.state.Seed, "bid", round, mgr.Personality, mgr.ID))
			if out := m.submitBid(ctx, mgr.ID, amount); !out.Success {
				m.eng.logger.Warn("bot bid rejected",
					"match_id", m.state.ID, "manager_id", mgr.ID, "error", out.Error)
			}
		case match.PhaseStrategy:
			if _, acted := m.state.Round.Strategies[mgr.ID]; acted {
				continue
			}
			text := provider.Strategy(decision.StrategyContext{
				Round:      round,
				Challenge:  m.state.Round.Challenge,
				WonAuction: m.state.Round.Winner == mgr.ID,
			})
			if out := m.submitStrategy(ctx, mgr.ID, text); !out.Success {
				m.eng.logger.Warn("bot strategy rejected",
					"match_id", m.state.ID, "manager_id", mgr.ID, "error", out.Error)
			}
		}

		// A bot's submission may have advanced the phase already.
		if m.state.Machine.Phase() != phase || m.state.Machine.Round() != round {
			return
		}
	}
}

// --- submissions -------------------------------------------------------------

// submitBid validates and applies a sealed bid. Caller holds m.mu.
func (m *Match) submitBid(ctx context.Context, managerID string, amount int) Outcome {
	round := m.state.Machine.Round()

	if m.state.Status != match.StatusActive {
		return failure(managerID, round, "match is not active")
	}
	if m.state.Machine.Phase() != match.PhaseBidding {
		return failure(managerID, round, "not in bidding phase")
	}
	if !m.state.HasManager(managerID) {
		return failure(managerID, round, "unknown manager")
	}
	if _, dup := m.state.Round.Bids[managerID]; dup {
		return failure(managerID, round, "bid already submitted")
	}
	if amount < 0 {
		return failure(managerID, round, "bid amount is negative")
	}
	if amount > m.state.Budgets[managerID] {
		return failure(managerID, round, "bid amount exceeds remaining budget")
	}

	m.state.Round.Bids[managerID] = amount
	m.append(ctx, event.BidSubmitted{Round: round, ManagerID: managerID, Amount: amount})

	if len(m.state.Round.Bids) == len(m.state.Managers) {
		m.advance(ctx)
	}
	return success(managerID, round)
}

// submitStrategy validates and applies a strategy. Caller holds m.mu.
func (m *Match) submitStrategy(ctx context.Context, managerID, strategy string) Outcome {
	round := m.state.Machine.Round()

	if m.state.Status != match.StatusActive {
		return failure(managerID, round, "match is not active")
	}
	if m.state.Machine.Phase() != match.PhaseStrategy {
		return failure(managerID, round, "not in strategy phase")
	}
	if !m.state.HasManager(managerID) {
		return failure(managerID, round, "unknown manager")
	}
	if _, dup := m.state.Round.Strategies[managerID]; dup {
		return failure(managerID, round, "strategy already submitted")
	}
	if strategy == "" {
		return failure(managerID, round, "strategy is empty")
	}

	m.state.Round.Strategies[managerID] = strategy
	m.append(ctx, event.StrategySubmitted{Round: round, ManagerID: managerID, Strategy: strategy})

	if len(m.state.Round.Strategies) == len(m.state.Managers) {
		m.advance(ctx)
	}
	return success(managerID, round)
}

// applyExecutionResult scores one manager's harness result. Caller holds
// m.mu.
func (m *Match) applyExecutionResult(ctx context.Context, managerID string, round int, sub HarnessSubmission) Outcome {
	current := m.state.Machine.Round()

	if m.state.Status != match.StatusActive {
		return failure(managerID, current, "match is not active")
	}
	if m.state.Machine.Phase() != match.PhaseExecution {
		return failure(managerID, current, "not in execution phase")
	}
	if round != current {
		return failure(managerID, current, "result is for a different round")
	}
	if !m.state.HasManager(managerID) {
		return failure(managerID, current, "unknown manager")
	}
	if _, dup := m.state.Round.Scores[managerID]; dup {
		return failure(managerID, current, "result already applied")
	}

	res := scoring.Score(sub.Result, sub.RawBonus)
	m.state.RecordScore(managerID, res)
	m.append(ctx, event.SubmissionScored{Round: current, ManagerID: managerID, Score: res})

	if len(m.state.Round.Scores) == len(m.state.Managers) {
		m.advance(ctx)
	}
	return success(managerID, current)
}

// snapshot builds the read-only view. Caller holds m.mu.
func (m *Match) snapshot() Snapshot {
	var deadline *time.Time
	if m.deadline != nil {
		d := *m.deadline
		deadline = &d
	}
	return Snapshot{
		ID:        m.state.ID,
		Seed:      m.state.Seed,
		Status:    m.state.Status,
		Round:     m.state.Machine.Round(),
		Phase:     m.state.Machine.Phase(),
		Deadline:  deadline,
		Standings: m.standings(),
	}
}
