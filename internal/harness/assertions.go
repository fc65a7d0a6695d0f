package harness

import (
	"fmt"
	"strings"

	"pitwall/internal/engine"
	"pitwall/internal/event"
)

// AssertionContext carries everything assertions evaluate against: the full
// event log in append order and the final match snapshot.
type AssertionContext struct {
	Records  []event.Record
	Snapshot engine.Snapshot
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty slice means all assertions held.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventCount:
			err = assertEventCount(&a, actx)
		case AssertEventOrder:
			err = assertEventOrder(&a, actx)
		case AssertEventContains:
			err = assertEventContains(&a, actx)
		case AssertFinalStatus:
			err = assertFinalStatus(&a, actx)
		case AssertStandings:
			err = assertStandings(&a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func assertEventCount(a *Assertion, actx *AssertionContext) error {
	count := 0
	for _, rec := range actx.Records {
		if string(rec.Type) == a.Event {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("expected %d %s events, found %d", a.Count, a.Event, count)
	}
	return nil
}

// assertEventOrder checks the listed event types appear as a subsequence of
// the log. Other events may interleave freely.
func assertEventOrder(a *Assertion, actx *AssertionContext) error {
	next := 0
	for _, rec := range actx.Records {
		if next < len(a.Events) && string(rec.Type) == a.Events[next] {
			next++
		}
	}
	if next != len(a.Events) {
		return fmt.Errorf("event %q (position %d of %s) never occurred in order",
			a.Events[next], next, strings.Join(a.Events, " → "))
	}
	return nil
}

func assertEventContains(a *Assertion, actx *AssertionContext) error {
	for _, rec := range actx.Records {
		if string(rec.Type) != a.Event {
			continue
		}
		manager, round := payloadIdentity(rec.Payload)
		if a.Manager != "" && manager != a.Manager {
			continue
		}
		if a.Round != 0 && round != a.Round {
			continue
		}
		return nil
	}
	return fmt.Errorf("no %s event matched manager=%q round=%d", a.Event, a.Manager, a.Round)
}

func assertFinalStatus(a *Assertion, actx *AssertionContext) error {
	got := string(actx.Snapshot.Status)
	if got != a.Status {
		return fmt.Errorf("expected status %q, got %q", a.Status, got)
	}
	return nil
}

func assertStandings(a *Assertion, actx *AssertionContext) error {
	standings := actx.Snapshot.Standings
	if a.Leader != "" {
		if len(standings) == 0 {
			return fmt.Errorf("expected leader %q but standings are empty", a.Leader)
		}
		if standings[0].ManagerID != a.Leader {
			return fmt.Errorf("expected leader %q, got %q", a.Leader, standings[0].ManagerID)
		}
	}
	if len(a.Order) > 0 {
		if len(a.Order) != len(standings) {
			return fmt.Errorf("expected %d ranked managers, got %d", len(a.Order), len(standings))
		}
		for i, want := range a.Order {
			if standings[i].ManagerID != want {
				return fmt.Errorf("rank %d: expected %q, got %q", i+1, want, standings[i].ManagerID)
			}
		}
	}
	return nil
}

// payloadIdentity extracts the acting manager and round from a payload,
// empty/zero where the payload carries none.
func payloadIdentity(p event.Payload) (string, int) {
	switch v := p.(type) {
	case event.PhaseTransition:
		return "", v.Round
	case event.BidSubmitted:
		return v.ManagerID, v.Round
	case event.StrategySubmitted:
		return v.ManagerID, v.Round
	case event.SubmissionScored:
		return v.ManagerID, v.Round
	case event.RoundResult:
		return v.Winner, v.Round
	case event.MatchComplete:
		return v.Winner, 0
	default:
		return "", 0
	}
}
