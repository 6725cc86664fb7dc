package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"matstock-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// GET /api/reports — per-material stock summary across all materials,
// including deactivated ones (full history view).
func StockReportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var materials []models.Material
		if err := db.Preload("GRNs").Preload("IssueItems").Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate report.")
		}
		return c.JSON(SummarizeAll(materials))
	}
}

// GET /api/stock/current — same summary restricted to active materials.
func CurrentStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var materials []models.Material
		if err := db.Preload("GRNs").Preload("IssueItems").
			Where("is_active = ?", true).
			Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch current stock.")
		}
		return c.JSON(SummarizeAll(materials))
	}
}

// movementFilter holds the optional query filters for the movements stream.
type movementFilter struct {
	materialID uint
	from       time.Time
	to         time.Time
	hasFrom    bool
	hasTo      bool
}

func parseMovementFilter(c *fiber.Ctx) (movementFilter, error) {
	var f movementFilter
	if raw := c.Query("materialId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return f, fiber.NewError(fiber.StatusBadRequest, "Invalid materialId filter.")
		}
		f.materialID = uint(id)
	}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "start must be YYYY-MM-DD.")
		}
		f.from, f.hasFrom = t, true
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "end must be YYYY-MM-DD.")
		}
		// inclusive end of day
		f.to, f.hasTo = t.Add(24*time.Hour-time.Nanosecond), true
	}
	return f, nil
}

func loadMovements(db *gorm.DB, f movementFilter) ([]Movement, error) {
	grnQ := db.Preload("Material").Where("is_active = ?", true)
	issueQ := db.Preload("Material")
	if f.materialID != 0 {
		grnQ = grnQ.Where("material_id = ?", f.materialID)
		issueQ = issueQ.Where("material_id = ?", f.materialID)
	}
	if f.hasFrom {
		grnQ = grnQ.Where("received_date >= ?", f.from)
		issueQ = issueQ.Where("issue_date >= ?", f.from)
	}
	if f.hasTo {
		grnQ = grnQ.Where("received_date <= ?", f.to)
		issueQ = issueQ.Where("issue_date <= ?", f.to)
	}

	var grns []models.GRN
	if err := grnQ.Find(&grns).Error; err != nil {
		return nil, err
	}
	var issues []models.IssueNote
	if err := issueQ.Find(&issues).Error; err != nil {
		return nil, err
	}
	return MergeMovements(grns, issues), nil
}

// GET /api/stock/movements — merged receipt/issue stream, date ascending.
// Optional filters: materialId, start, end (YYYY-MM-DD, inclusive).
func StockMovementsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseMovementFilter(c)
		if err != nil {
			return err
		}
		movements, err := loadMovements(db, filter)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stock movements.")
		}
		return c.JSON(movements)
	}
}

// GET /api/stock/movements/export — the same stream as an XLSX download.
func ExportMovementsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseMovementFilter(c)
		if err != nil {
			return err
		}
		movements, err := loadMovements(db, filter)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stock movements.")
		}

		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		sheet := f.GetSheetName(f.GetActiveSheetIndex())

		headers := []string{"Type", "Material", "Date", "Quantity", "Rate", "Amount", "Reference", "Supplier"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for row, m := range movements {
			values := []interface{}{
				m.Type,
				m.Material,
				m.Date.Format("2006-01-02"),
				m.Quantity.InexactFloat64(),
				m.Rate.InexactFloat64(),
				m.Amount.InexactFloat64(),
				m.Reference,
				m.Supplier,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			logrus.WithError(err).Error("movements export failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to build export.")
		}

		filename := fmt.Sprintf("stock-movements-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Send(buf.Bytes())
	}
}

// GET /api/stock/valuation — remaining stock priced at lot receipt rates.
func StockValuationHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var materials []models.Material
		if err := db.Preload("GRNs", "is_active = ?", true).
			Where("is_active = ?", true).
			Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch stock valuation.")
		}
		out := make([]Valuation, 0, len(materials))
		for _, m := range materials {
			out = append(out, Valuate(m))
		}
		return c.JSON(out)
	}
}
