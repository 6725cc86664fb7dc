package issue

import (
	"context"
	"fmt"

	"matstock-backend/internal/fifo"
	"matstock-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewStore returns the GORM-backed fifo.Store over the grns / issue_notes /
// issue_items tables.
func NewStore(db *gorm.DB) fifo.Store {
	return &gormStore{db: db}
}

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) ListOpenLots(ctx context.Context, materialID uint) ([]fifo.Lot, error) {
	var grns []models.GRN
	err := s.db.WithContext(ctx).
		Where("material_id = ? AND is_active = ? AND remaining > 0", materialID, true).
		Order("received_date ASC, id ASC").
		Find(&grns).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list open lots: %v", fifo.ErrStoreUnavailable, err)
	}

	lots := make([]fifo.Lot, len(grns))
	for i, g := range grns {
		lots[i] = fifo.Lot{
			ID:           g.ID,
			LotNumber:    g.GRNNumber,
			Remaining:    g.Remaining,
			Rate:         g.Rate,
			ReceivedDate: g.ReceivedDate,
		}
	}
	return lots, nil
}

func (s *gormStore) Atomically(ctx context.Context, fn func(tx fifo.TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}

type gormTx struct {
	tx *gorm.DB
}

// ApplyConsumption is the optimistic-concurrency write: the decrement only
// lands when remaining still holds the value read during planning. A
// concurrent committer changes remaining, the condition matches no row, and
// the whole transaction is rolled back by the caller.
func (t *gormTx) ApplyConsumption(lotID uint, expectedRemaining, takeQty decimal.Decimal) error {
	res := t.tx.Model(&models.GRN{}).
		Where("id = ? AND remaining = ?", lotID, expectedRemaining).
		Update("remaining", expectedRemaining.Sub(takeQty))
	if res.Error != nil {
		return fmt.Errorf("%w: apply consumption: %v", fifo.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return fifo.ErrConcurrentModification
	}
	return nil
}

func (t *gormTx) RecordIssuance(header *fifo.Issuance, lines []fifo.IssuanceLine) error {
	note := models.IssueNote{
		IssueNumber:   header.IssueNumber,
		MaterialID:    header.MaterialID,
		IssueDate:     header.IssueDate,
		TotalQuantity: header.TotalQuantity,
		TotalAmount:   header.TotalAmount,
		WeightedRate:  header.WeightedRate,
	}
	if err := t.tx.Create(&note).Error; err != nil {
		return fmt.Errorf("%w: create issue note: %v", fifo.ErrStoreUnavailable, err)
	}

	items := make([]models.IssueItem, len(lines))
	for i, ln := range lines {
		items[i] = models.IssueItem{
			IssueNoteID: note.ID,
			GRNID:       ln.LotID,
			MaterialID:  ln.MaterialID,
			Quantity:    ln.Quantity,
			Rate:        ln.Rate,
			Amount:      ln.Amount,
		}
	}
	if len(items) > 0 {
		if err := t.tx.Create(&items).Error; err != nil {
			return fmt.Errorf("%w: create issue items: %v", fifo.ErrStoreUnavailable, err)
		}
	}

	header.ID = note.ID
	return nil
}
