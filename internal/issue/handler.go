package issue

import (
	"errors"
	"fmt"
	"time"

	"matstock-backend/internal/audit"
	"matstock-backend/internal/fifo"
	"matstock-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateIssueNoteRequest struct {
	MaterialID  uint            `json:"materialId" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	IssueNumber string          `json:"issueNumber" validate:"required"`
	IssueDate   string          `json:"issueDate" validate:"required,datetime=2006-01-02"`
}

type PreviewIssueNoteRequest struct {
	MaterialID uint            `json:"materialId" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type UpdateIssueNoteRequest struct {
	IssueNumber string `json:"issueNumber"`
	IssueDate   string `json:"issueDate" validate:"omitempty,datetime=2006-01-02"`
}

type breakdownLine struct {
	LotID        uint            `json:"lotId"`
	LotLabel     string          `json:"lotLabel"`
	TakeQty      decimal.Decimal `json:"takeQty"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	ReceivedDate string          `json:"receivedDate"`
}

type issuanceLine struct {
	LotID   uint            `json:"lotId"`
	TakeQty decimal.Decimal `json:"takeQty"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}

// lookupActiveMaterial rejects issuing against a missing or deactivated
// material before the ledger runs.
func lookupActiveMaterial(db *gorm.DB, id uint) (*models.Material, error) {
	var material models.Material
	if err := db.First(&material, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Material not found")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to look up material")
	}
	if !material.IsActive {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Material is deactivated")
	}
	return &material, nil
}

// ledgerError maps the ledger's error taxonomy onto HTTP responses.
func ledgerError(c *fiber.Ctx, err error) error {
	var short *fifo.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     "Not enough stock available (FIFO).",
			"requested": short.Requested,
			"fulfilled": short.Fulfilled,
			"shortfall": short.Shortfall,
		})
	case errors.Is(err, fifo.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be > 0.")
	case errors.Is(err, fifo.ErrConcurrentModification):
		return fiber.NewError(fiber.StatusConflict, "Stock changed while issuing, please retry.")
	default:
		logrus.WithError(err).Error("issue ledger failure")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create issue note.")
	}
}

// POST /api/issue-notes/preview
func PreviewIssueNoteHandler(db *gorm.DB, ledger *fifo.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PreviewIssueNoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "materialId and quantity are required.")
		}

		if _, err := lookupActiveMaterial(db, body.MaterialID); err != nil {
			return err
		}

		plan, err := ledger.Preview(c.Context(), body.MaterialID, body.Quantity)
		if err != nil {
			return ledgerError(c, err)
		}

		breakdown := make([]breakdownLine, len(plan.Lines))
		for i, ln := range plan.Lines {
			breakdown[i] = breakdownLine{
				LotID:        ln.LotID,
				LotLabel:     ln.LotNumber,
				TakeQty:      ln.TakeQty,
				Rate:         ln.Rate,
				Amount:       ln.Amount().Round(2),
				ReceivedDate: ln.ReceivedDate.Format("2006-01-02"),
			}
		}

		return c.JSON(fiber.Map{
			"materialId":   body.MaterialID,
			"requestedQty": body.Quantity,
			"breakdown":    breakdown,
			"totalAmount":  plan.TotalAmount.Round(2),
			"weightedRate": plan.WeightedRate.Round(2),
		})
	}
}

// POST /api/issue-notes
func CreateIssueNoteHandler(db *gorm.DB, ledger *fifo.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIssueNoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"materialId, quantity, issueNumber and issueDate (YYYY-MM-DD) are required.")
		}

		material, err := lookupActiveMaterial(db, body.MaterialID)
		if err != nil {
			return err
		}
		issueDate, _ := time.Parse("2006-01-02", body.IssueDate)

		issuance, lines, err := ledger.Commit(c.Context(), body.MaterialID, body.Quantity, body.IssueNumber, issueDate)
		if err != nil {
			return ledgerError(c, err)
		}

		respLines := make([]issuanceLine, len(lines))
		for i, ln := range lines {
			respLines[i] = issuanceLine{LotID: ln.LotID, TakeQty: ln.Quantity, Rate: ln.Rate, Amount: ln.Amount}
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "issue_note",
			EntityID:    issuance.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Issued %s %s of %s (FIFO)", body.Quantity, material.Unit, material.Name),
			After:       issuance,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"issuance": fiber.Map{
				"id":            issuance.ID,
				"issueNumber":   issuance.IssueNumber,
				"issueDate":     issuance.IssueDate.Format("2006-01-02"),
				"materialId":    issuance.MaterialID,
				"totalQuantity": issuance.TotalQuantity,
				"totalAmount":   issuance.TotalAmount,
				"weightedRate":  issuance.WeightedRate,
			},
			"lines": respLines,
		})
	}
}

// GET /api/issue-notes
func ListIssueNotesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var notes []models.IssueNote
		if err := db.Preload("Items").Preload("Material").
			Order("issue_date DESC, id DESC").
			Find(&notes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch issue notes.")
		}
		return c.JSON(notes)
	}
}

// GET /api/issue-notes/:id
func GetIssueNoteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid issue note id.")
		}

		var note models.IssueNote
		if err := db.Preload("Items").Preload("Material").First(&note, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Issue note not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch issue note.")
		}
		return c.JSON(note)
	}
}

// PUT /api/issue-notes/:id — header fields only; quantities are immutable
// because the lot decrements already happened.
func UpdateIssueNoteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid issue note id.")
		}

		var body UpdateIssueNoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "issueDate must be a valid date (YYYY-MM-DD).")
		}

		var note models.IssueNote
		if err := db.First(&note, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Issue note not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch issue note.")
		}

		updates := map[string]interface{}{}
		if body.IssueNumber != "" {
			updates["issue_number"] = body.IssueNumber
		}
		if body.IssueDate != "" {
			d, _ := time.Parse("2006-01-02", body.IssueDate)
			updates["issue_date"] = d
		}
		if len(updates) > 0 {
			if err := db.Model(&note).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to update issue note.")
			}
		}

		if err := db.Preload("Items").Preload("Material").First(&note, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch issue note.")
		}
		return c.JSON(note)
	}
}

// DELETE /api/issue-notes/:id — hard delete, cascading to items. Lot
// balances are intentionally left as they are: there is no FIFO un-issue.
func DeleteIssueNoteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid issue note id.")
		}

		var note models.IssueNote
		if err := db.Preload("Items").First(&note, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Issue note not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch issue note.")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("issue_note_id = ?", note.ID).Delete(&models.IssueItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&note).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete issue note.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "issue_note",
			EntityID:    note.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Deleted issue note %s", note.IssueNumber),
			Before:      note,
		})

		return c.JSON(fiber.Map{"message": "Issue note deleted."})
	}
}
