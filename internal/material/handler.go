package material

import (
	"errors"
	"fmt"

	"matstock-backend/internal/audit"
	"matstock-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateMaterialRequest struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Unit          string          `json:"unit" validate:"required"`
	Category      string          `json:"category"`
	MinStockLevel decimal.Decimal `json:"minStockLevel"`
}

type UpdateMaterialRequest struct {
	Name          string           `json:"name"`
	Description   *string          `json:"description"`
	Unit          string           `json:"unit"`
	Category      *string          `json:"category"`
	MinStockLevel *decimal.Decimal `json:"minStockLevel"`
}

// POST /api/materials
func CreateMaterialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Name and unit are required.")
		}
		if body.MinStockLevel.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "minStockLevel must be >= 0.")
		}

		material := models.Material{
			Name:          body.Name,
			Description:   body.Description,
			Unit:          body.Unit,
			Category:      body.Category,
			MinStockLevel: body.MinStockLevel,
			IsActive:      true,
		}
		if err := db.Create(&material).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to create material.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "material",
			EntityID:    material.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Created material %s (%s)", material.Name, material.Unit),
			After:       material,
		})

		return c.Status(fiber.StatusCreated).JSON(material)
	}
}

// GET /api/materials (active by default; ?all=1 or ?includeInactive=1 for all)
func ListMaterialsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Material{})
		if c.Query("all") != "1" && c.Query("includeInactive") != "1" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var materials []models.Material
		if err := dbq.Order("id ASC").Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch materials.")
		}
		return c.JSON(materials)
	}
}

// GET /api/materials/:id
func GetMaterialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id.")
		}

		var material models.Material
		err = db.Preload("GRNs").Preload("IssueItems").First(&material, "id = ?", id).Error
		if err != nil || !material.IsActive {
			return fiber.NewError(fiber.StatusNotFound, "Material not found.")
		}
		return c.JSON(material)
	}
}

// PUT /api/materials/:id
func UpdateMaterialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id.")
		}

		var body UpdateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.MinStockLevel != nil && body.MinStockLevel.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "minStockLevel must be >= 0.")
		}

		var material models.Material
		if err := db.First(&material, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Material not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch material.")
		}
		if !material.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Cannot update a deleted material.")
		}
		before := material

		updates := map[string]interface{}{}
		if body.Name != "" {
			updates["name"] = body.Name
		}
		if body.Unit != "" {
			updates["unit"] = body.Unit
		}
		if body.Description != nil {
			updates["description"] = *body.Description
		}
		if body.Category != nil {
			updates["category"] = *body.Category
		}
		if body.MinStockLevel != nil {
			updates["min_stock_level"] = *body.MinStockLevel
		}
		if len(updates) > 0 {
			if err := db.Model(&material).Updates(updates).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to update material.")
			}
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "material",
			EntityID:    material.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Updated material %s", material.Name),
			Before:      before,
			After:       material,
		})

		return c.JSON(material)
	}
}

// DELETE /api/materials/:id — soft delete; GRN and issue history stays
// referencable.
func DeleteMaterialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id.")
		}

		var material models.Material
		if err := db.First(&material, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Material not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch material.")
		}

		if err := db.Model(&material).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to delete material.")
		}

		audit.WriteLog(db, audit.LogOptions{
			Ctx:         c,
			EntityType:  "material",
			EntityID:    material.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Deactivated material %s", material.Name),
			Before:      material,
		})

		return c.JSON(fiber.Map{"message": "Material deleted (soft delete).", "material": material})
	}
}

// PUT /api/materials/:id/restore
func RestoreMaterialHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id.")
		}

		var material models.Material
		if err := db.First(&material, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Material not found.")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch material.")
		}

		if err := db.Model(&material).Update("is_active", true).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to restore material.")
		}
		return c.JSON(material)
	}
}
