package fifo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRequest: caller error (non-positive quantity, unknown
	// material). Never retried.
	ErrInvalidRequest = errors.New("fifo: invalid request")

	// ErrConcurrentModification: a lot's remaining balance moved between the
	// planning read and the conditional write. The whole preview+commit cycle
	// is safe to retry.
	ErrConcurrentModification = errors.New("fifo: lot modified concurrently")

	// ErrStoreUnavailable wraps collaborator I/O failures.
	ErrStoreUnavailable = errors.New("fifo: store unavailable")
)

// InsufficientStockError: the candidate lots cannot cover the requested
// quantity. A business outcome, not a system fault; nothing was written.
type InsufficientStockError struct {
	Requested decimal.Decimal
	Fulfilled decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("fifo: insufficient stock: requested %s, fulfillable %s, short %s",
		e.Requested, e.Fulfilled, e.Shortfall)
}
