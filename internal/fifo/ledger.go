package fifo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// commitAttempts bounds automatic retries after a concurrent modification.
// A stale read may have picked the wrong lot order entirely, so each retry
// replans from a fresh snapshot instead of patching individual lines.
const commitAttempts = 3

// Ledger runs the FIFO algorithm against a Store. It holds no state of its
// own and is safe for concurrent use.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Preview computes the allocation plan against the current lot snapshot
// without writing anything. Two previews over unchanged data yield
// identical plans.
func (l *Ledger) Preview(ctx context.Context, materialID uint, quantity decimal.Decimal) (*Plan, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}
	lots, err := l.store.ListOpenLots(ctx, materialID)
	if err != nil {
		return nil, err
	}
	return Allocate(materialID, quantity, lots)
}

// Commit plans and persists an issuance in one atomic unit: every consumed
// lot's remaining is conditionally decremented and the issuance header plus
// lines are inserted, or nothing is applied at all. On a concurrent
// modification the whole read-plan-write cycle is retried up to
// commitAttempts times before ErrConcurrentModification is returned.
func (l *Ledger) Commit(ctx context.Context, materialID uint, quantity decimal.Decimal, issueNumber string, issueDate time.Time) (*Issuance, []IssuanceLine, error) {
	var lastErr error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		issuance, lines, err := l.commitOnce(ctx, materialID, quantity, issueNumber, issueDate)
		if err == nil {
			return issuance, lines, nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return nil, nil, err
		}
		lastErr = err
		logrus.WithFields(logrus.Fields{
			"materialId": materialID,
			"attempt":    attempt,
		}).Warn("fifo commit lost a race, replanning")
	}
	return nil, nil, lastErr
}

func (l *Ledger) commitOnce(ctx context.Context, materialID uint, quantity decimal.Decimal, issueNumber string, issueDate time.Time) (*Issuance, []IssuanceLine, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrInvalidRequest
	}

	lots, err := l.store.ListOpenLots(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}

	plan, err := Allocate(materialID, quantity, lots)
	if err != nil {
		return nil, nil, err
	}

	// Remaining balances as read during planning; the conditional writes
	// below are keyed on these values.
	readRemaining := make(map[uint]decimal.Decimal, len(lots))
	for _, lot := range lots {
		readRemaining[lot.ID] = lot.Remaining
	}

	header := &Issuance{
		MaterialID:    materialID,
		IssueNumber:   issueNumber,
		IssueDate:     issueDate,
		TotalQuantity: quantity,
		TotalAmount:   plan.TotalAmount.Round(2),
		WeightedRate:  plan.WeightedRate.Round(2),
	}
	lines := make([]IssuanceLine, len(plan.Lines))
	for i, ln := range plan.Lines {
		lines[i] = IssuanceLine{
			LotID:      ln.LotID,
			MaterialID: materialID,
			Quantity:   ln.TakeQty,
			Rate:       ln.Rate,
			Amount:     ln.Amount().Round(2),
		}
	}

	err = l.store.Atomically(ctx, func(tx TxStore) error {
		for _, ln := range plan.Lines {
			if err := tx.ApplyConsumption(ln.LotID, readRemaining[ln.LotID], ln.TakeQty); err != nil {
				return err
			}
		}
		return tx.RecordIssuance(header, lines)
	})
	if err != nil {
		return nil, nil, err
	}
	return header, lines, nil
}
