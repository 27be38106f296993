// Package fifo implements the realized gain/loss computation. One Compute
// call owns its lot queues exclusively: initial lots are copied in, consumed
// destructively, and the leftovers are handed back in the result. Nothing is
// shared between calls.
package fifo

import (
	"fmt"
	"sort"

	"github.com/username/gainledger/src/models"
)

// Epsilon absorbs floating-point residue in quantity arithmetic. A lot whose
// remaining quantity falls at or below it counts as fully consumed.
const Epsilon = 1e-9

// Lot is an open tranche of shares at a single per-unit cost.
type Lot struct {
	Quantity float64
	Cost     float64
}

// Realized is the per-position running total. Gain and Loss accumulate
// separately and are never netted here; net is derived by the caller.
type Realized struct {
	Gain float64
	Loss float64
}

func (r *Realized) add(amount float64) {
	if amount >= 0 {
		r.Gain += amount
	} else {
		r.Loss += -amount
	}
}

// PositionKey identifies one lot queue: a symbol within an account.
type PositionKey struct {
	AccountID string
	Symbol    string
}

// Result is the outcome of one computation pass.
type Result struct {
	// Realized maps each position touched by the trade stream to its
	// accumulated gain and loss.
	Realized map[PositionKey]*Realized
	// Warnings describe cost-basis gaps encountered along the way.
	Warnings []models.Warning
	// MissingCost marks positions where at least one sell had to fall back
	// to zero cost.
	MissingCost map[PositionKey]bool
	// OpenLots holds whatever remains unconsumed after the pass, oldest
	// first. Useful for seeding a follow-up period and for reconciliation.
	OpenLots map[PositionKey][]Lot
}

// Compute matches the trade stream against opening lots first-in-first-out
// and returns realized gain/loss per position.
//
// Trades are stably sorted by trade date before matching, so results do not
// depend on the arrival order of the source documents. A BUY appends a lot; a
// SELL consumes from the queue head. When targetYear is non-zero only trades
// dated in that year contribute to the accumulators, but lot consumption is
// never year-gated: shares must deplete in FIFO order across all years so
// that later years see the correct remaining cost basis.
//
// A sell that exhausts the queue falls back to fallbackCosts; a position with
// no fallback uses zero cost and is reported in MissingCost with a Warning.
func Compute(trades []models.Trade, initialLots map[PositionKey][]Lot, fallbackCosts map[PositionKey]float64, targetYear int) Result {
	queues := make(map[PositionKey][]Lot, len(initialLots))
	for key, lots := range initialLots {
		queues[key] = append([]Lot(nil), lots...)
	}

	res := Result{
		Realized:    make(map[PositionKey]*Realized),
		MissingCost: make(map[PositionKey]bool),
		OpenLots:    queues,
	}

	sorted := append([]models.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TradeDate.Before(sorted[j].TradeDate)
	})

	for _, trade := range sorted {
		key := PositionKey{AccountID: trade.AccountID, Symbol: trade.Symbol}
		acc, ok := res.Realized[key]
		if !ok {
			acc = &Realized{}
			res.Realized[key] = acc
		}

		if trade.Side == models.SideBuy {
			queues[key] = append(queues[key], Lot{Quantity: trade.Quantity, Cost: trade.Price})
			continue
		}

		counted := targetYear == 0 || trade.TradeDate.Year() == targetYear
		remaining := trade.Quantity
		queue := queues[key]
		for remaining > Epsilon && len(queue) > 0 {
			lot := &queue[0]
			take := remaining
			if lot.Quantity < take {
				take = lot.Quantity
			}
			if counted {
				acc.add((trade.Price - lot.Cost) * take)
			}
			lot.Quantity -= take
			remaining -= take
			if lot.Quantity <= Epsilon {
				queue = queue[1:]
			}
		}
		queues[key] = queue

		if remaining > Epsilon {
			cost, ok := fallbackCosts[key]
			if !ok {
				res.Warnings = append(res.Warnings, models.Warning{
					AccountID: key.AccountID,
					Symbol:    key.Symbol,
					Message: fmt.Sprintf(
						"Sell of %s exceeds available lots and no year-start average cost provided. Used 0 cost for remaining shares.",
						key.Symbol),
				})
				res.MissingCost[key] = true
				cost = 0
			}
			if counted {
				acc.add((trade.Price - cost) * remaining)
			}
		}
	}

	return res
}
