package fifo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Issuance is the persisted header of one consumption event.
type Issuance struct {
	ID            uint
	MaterialID    uint
	IssueNumber   string
	IssueDate     time.Time
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
	WeightedRate  decimal.Decimal
}

// IssuanceLine references the lot a slice of the issuance was taken from.
type IssuanceLine struct {
	LotID      uint
	MaterialID uint
	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	Amount     decimal.Decimal
}

// Store is the persistence boundary of the ledger. Implementations wrap
// their I/O failures with ErrStoreUnavailable.
type Store interface {
	// ListOpenLots returns the material's lots with active=true and
	// remaining > 0, ordered by received date ascending, lot ID ascending.
	ListOpenLots(ctx context.Context, materialID uint) ([]Lot, error)

	// Atomically runs fn inside one transaction. Every write fn performs is
	// applied on a nil return and rolled back entirely on error.
	Atomically(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the write surface available inside Atomically.
type TxStore interface {
	// ApplyConsumption decrements the lot's remaining by takeQty, but only
	// if remaining still equals expectedRemaining as read during planning.
	// Returns ErrConcurrentModification when the condition fails.
	ApplyConsumption(lotID uint, expectedRemaining, takeQty decimal.Decimal) error

	// RecordIssuance persists the header plus its lines and fills header.ID.
	RecordIssuance(header *Issuance, lines []IssuanceLine) error
}
