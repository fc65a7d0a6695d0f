// Package auction resolves per-round sealed-bid auctions.
//
// Resolution is a pure function of (bids, generator): sort descending by
// amount, break ties by standings rank (the worse-ranked bidder wins the
// tie), break any remaining tie with a draw from the round's deterministic
// generator. The winner pays their bid exactly (first-price).
package auction

import (
	"fmt"
	"math/rand"
	"sort"
)

// Bid is one manager's sealed bid for the round. Constructed fresh each
// round, consumed once by Resolve or Rank, and discarded with the round.
type Bid struct {
	ManagerID string `json:"manager_id"`
	Amount    int    `json:"amount"`
	// Rank is the bidder's current standings position (1 = leader).
	// Numerically larger means currently worse placed.
	Rank int `json:"rank"`
	// Budget is the bidder's remaining budget when the bid was sealed.
	Budget int `json:"budget"`
}

// Result is the auditable outcome of one resolution.
type Result struct {
	// Winner is nil when every bid was zero.
	Winner *Bid `json:"winner,omitempty"`
	// WinningAmount is what the winner pays (their own bid; first-price).
	WinningAmount int `json:"winning_amount"`
	// Order is the full pick order after tie-breaking, highest priority first.
	Order []Bid `json:"order"`
	// BudgetDeltas maps managerID to budget change; only the winner has a
	// non-zero entry.
	BudgetDeltas map[string]int `json:"budget_deltas"`
}

// ValidationError reports a bid rejected before resolution.
type ValidationError struct {
	ManagerID string
	Amount    int
	Budget    int
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bid from %s: %s (amount=%d, budget=%d)",
		e.ManagerID, e.Reason, e.Amount, e.Budget)
}

// Validate rejects bids with a negative amount or an amount exceeding the
// bidder's remaining budget. Nothing is mutated on rejection.
func Validate(bids []Bid) error {
	for _, b := range bids {
		if b.Amount < 0 {
			return &ValidationError{ManagerID: b.ManagerID, Amount: b.Amount, Budget: b.Budget, Reason: "amount is negative"}
		}
		if b.Amount > b.Budget {
			return &ValidationError{ManagerID: b.ManagerID, Amount: b.Amount, Budget: b.Budget, Reason: "amount exceeds remaining budget"}
		}
	}
	return nil
}

// Rank returns the full pick order for the bids: descending by amount, ties
// by worse standings rank, remaining ties by a draw from gen.
//
// The same sort drives both single-winner resolution and multi-slot prize
// distribution, so callers needing a full ranking use Rank directly.
func Rank(bids []Bid, gen *rand.Rand) ([]Bid, error) {
	if err := Validate(bids); err != nil {
		return nil, err
	}

	order := make([]Bid, len(bids))
	copy(order, bids)

	// Tie-break draws are assigned per bid up front so the sort comparator
	// stays consistent regardless of comparison order.
	draws := make(map[string]int64, len(order))
	for _, b := range order {
		draws[b.ManagerID] = gen.Int63()
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if a.Rank != b.Rank {
			return a.Rank > b.Rank // worse-ranked bidder wins the tie
		}
		return draws[a.ManagerID] > draws[b.ManagerID]
	})

	return order, nil
}

// Resolve runs the auction for a round.
//
// The top bidder after tie-breaking wins and pays their bid; every other
// budget is unchanged. If every bid is zero there is no winner and no
// budget changes.
func Resolve(bids []Bid, gen *rand.Rand) (*Result, error) {
	order, err := Rank(bids, gen)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Order:        order,
		BudgetDeltas: make(map[string]int, len(order)),
	}
	for _, b := range order {
		res.BudgetDeltas[b.ManagerID] = 0
	}

	if len(order) == 0 || order[0].Amount == 0 {
		return res, nil
	}

	winner := order[0]
	res.Winner = &winner
	res.WinningAmount = winner.Amount
	res.BudgetDeltas[winner.ManagerID] = -winner.Amount
	return res, nil
}
