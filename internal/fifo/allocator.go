// Package fifo implements the first-in-first-out stock ledger: given a
// requested quantity of a material it consumes the oldest open receipt lots
// first, splitting across lots when one is not enough, and computes the
// quantity-weighted average rate of the issue.
package fifo

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a read snapshot of one open receipt lot (a GRN with remaining > 0).
type Lot struct {
	ID           uint
	LotNumber    string
	Remaining    decimal.Decimal
	Rate         decimal.Decimal
	ReceivedDate time.Time
}

// PlanLine: how much to take from one lot, at that lot's rate.
type PlanLine struct {
	LotID        uint
	LotNumber    string
	TakeQty      decimal.Decimal
	Rate         decimal.Decimal
	ReceivedDate time.Time
}

// Amount is the unrounded cost of the line.
func (l PlanLine) Amount() decimal.Decimal { return l.TakeQty.Mul(l.Rate) }

// Plan is a deterministic consumption plan for one requested quantity.
// TotalAmount and WeightedRate are kept unrounded; rounding to two decimals
// happens only at storage and presentation boundaries.
type Plan struct {
	MaterialID   uint
	RequestedQty decimal.Decimal
	Lines        []PlanLine
	TotalAmount  decimal.Decimal
	WeightedRate decimal.Decimal
}

// Allocate builds the FIFO plan for requested against the candidate lots.
// Lots are consumed in ascending ReceivedDate order; equal dates break ties
// on ascending lot ID, so the same input set always yields the same plan.
// Single pass, no backtracking, no mutation of the candidates.
//
// Returns ErrInvalidRequest when requested <= 0 and *InsufficientStockError
// when the candidates cannot cover the full quantity.
func Allocate(materialID uint, requested decimal.Decimal, candidates []Lot) (*Plan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}

	lots := make([]Lot, len(candidates))
	copy(lots, candidates)
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].ReceivedDate.Equal(lots[j].ReceivedDate) {
			return lots[i].ID < lots[j].ID
		}
		return lots[i].ReceivedDate.Before(lots[j].ReceivedDate)
	})

	toAllocate := requested
	var lines []PlanLine
	for _, lot := range lots {
		if toAllocate.IsZero() {
			break
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		take := decimal.Min(lot.Remaining, toAllocate)
		lines = append(lines, PlanLine{
			LotID:        lot.ID,
			LotNumber:    lot.LotNumber,
			TakeQty:      take,
			Rate:         lot.Rate,
			ReceivedDate: lot.ReceivedDate,
		})
		toAllocate = toAllocate.Sub(take)
	}

	if toAllocate.IsPositive() {
		return nil, &InsufficientStockError{
			Requested: requested,
			Fulfilled: requested.Sub(toAllocate),
			Shortfall: toAllocate,
		}
	}

	total := decimal.Zero
	for _, ln := range lines {
		total = total.Add(ln.Amount())
	}

	return &Plan{
		MaterialID:   materialID,
		RequestedQty: requested,
		Lines:        lines,
		TotalAmount:  total,
		WeightedRate: total.Div(requested),
	}, nil
}
