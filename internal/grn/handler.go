package grn

import (
	"errors"
	"fmt"
	"time"

	"matstock-backend/internal/audit"
	"matstock-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateGRNRequest struct {
	MaterialID   uint            `json:"materialId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	GRNNumber    string          `json:"grnNumber" validate:"required"`
	SupplierName string          `json:"supplierName" validate:"required"`
	ReceivedDate string          `json:"receivedDate" validate:"required,datetime=2006-01-02"`
}

type UpdateGRNRequest struct {
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	GRNNumber    string          `json:"grnNumber" validate:"required"`
	SupplierName string          `json:"supplierName" validate:"required"`
	ReceivedDate string          `json:"receivedDate" validate:"required,datetime=2006-01-02"`
}

// POST /api/grns
func CreateGRNHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateGRNRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"materialId, quantity, rate, grnNumber, supplierName and receivedDate (YYYY-MM-DD) are required.")
		}
		if !body.Quantity.IsPositive() || !body.Rate.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "quantity and rate must be > 0.")
		}

		var material models.Material
		if err := db.First(&material, "id = ? AND is_active = ?", body.MaterialID, true).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Material not found.")
		}

		receivedDate, _ := time.Parse("2006-01-02", body.ReceivedDate)

		lot := models.GRN{
			GRNNumber:    body.GRNNumber,
			MaterialID:   body.MaterialID,
			Quantity:     body.Quantity,
			Remaining:    body.Quantity, // a fresh lot is fully available
			Rate:         body.Rate,
			Amount:       body.Quantity.Mul(body.Rate).Round(2),
			SupplierName: body.SupplierName,
			ReceivedDate: receivedDate,
			IsActive:     true,
		}
		if err := db.Create(&lot).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create GRN.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "grn",
			EntityID:    lot.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Received %s %s of %s (%s)", lot.Quantity, material.Unit, material.Name, lot.GRNNumber),
			After:       lot,
		})

		return c.Status(fiber.StatusCreated).JSON(lot)
	}
}

// GET /api/grns
func ListGRNsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var lots []models.GRN
		if err := db.Preload("Material").
			Where("is_active = ?", true).
			Order("received_date ASC, id ASC").
			Find(&lots).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch GRNs.")
		}
		return c.JSON(lots)
	}
}

// GET /api/grns/:id
func GetGRNHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid GRN id.")
		}

		var lot models.GRN
		err = db.Preload("Material").First(&lot, "id = ?", id).Error
		if err != nil || !lot.IsActive {
			return fiber.NewError(fiber.StatusNotFound, "GRN not found.")
		}
		return c.JSON(lot)
	}
}

// PUT /api/grns/:id — corrective edit. The new quantity may never drop
// below what issues already consumed, and remaining is recomputed so that
// quantity - remaining stays equal to the consumed amount.
func UpdateGRNHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid GRN id.")
		}

		var body UpdateGRNRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "All fields are required.")
		}
		if !body.Quantity.IsPositive() || !body.Rate.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "quantity and rate must be > 0.")
		}

		var lot models.GRN
		if err := db.First(&lot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "GRN not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch GRN.")
		}
		if !lot.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Cannot update a deleted GRN.")
		}
		before := lot

		alreadyIssued := lot.Quantity.Sub(lot.Remaining)
		if body.Quantity.LessThan(alreadyIssued) {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("quantity cannot be less than already issued (%s).", alreadyIssued))
		}

		receivedDate, _ := time.Parse("2006-01-02", body.ReceivedDate)

		updates := map[string]interface{}{
			"quantity":      body.Quantity,
			"rate":          body.Rate,
			"grn_number":    body.GRNNumber,
			"supplier_name": body.SupplierName,
			"received_date": receivedDate,
			"amount":        body.Quantity.Mul(body.Rate).Round(2),
			"remaining":     body.Quantity.Sub(alreadyIssued),
		}
		if err := db.Model(&lot).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update GRN.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "grn",
			EntityID:    lot.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Corrected GRN %s", lot.GRNNumber),
			Before:      before,
			After:       lot,
		})

		return c.JSON(lot)
	}
}

// DELETE /api/grns/:id — soft delete; the lot stops being a FIFO candidate.
func DeleteGRNHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid GRN id.")
		}

		var lot models.GRN
		if err := db.First(&lot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "GRN not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch GRN.")
		}

		if err := db.Model(&lot).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete GRN.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "grn",
			EntityID:    lot.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Deactivated GRN %s", lot.GRNNumber),
			Before:      lot,
		})

		return c.JSON(fiber.Map{"message": "GRN deleted (soft delete).", "grn": lot})
	}
}

// PUT /api/grns/:id/restore
func RestoreGRNHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid GRN id.")
		}

		var lot models.GRN
		if err := db.First(&lot, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "GRN not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch GRN.")
		}

		if err := db.Model(&lot).Update("is_active", true).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to restore GRN.")
		}
		return c.JSON(lot)
	}
}
