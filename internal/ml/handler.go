package ml

import (
	"context"
	"strconv"
	"sync"

	"matstock-backend/internal/models"
	"matstock-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultHorizon      = 7
	defaultLeadTimeDays = 7
	defaultZ            = 1.65
)

// Summary is the ML block attached to a stock row. A failed service call
// fills the matching error field and leaves the values null; the stock data
// itself is always served.
type Summary struct {
	SkuUsed        string    `json:"sku_used"`
	LeadTimeDays   int       `json:"leadTimeDays"`
	Z              float64   `json:"z"`
	Forecast       []float64 `json:"forecast"`
	ForecastSum    *float64  `json:"forecastSum"`
	SafetyStock    *float64  `json:"safetyStock"`
	ReorderPoint   *float64  `json:"reorderPoint"`
	SuggestedOrder *float64  `json:"suggestedOrder"`
	Errors         Errors    `json:"errors"`
}

type Errors struct {
	Forecast *string `json:"forecast"`
	Reorder  *string `json:"reorder"`
}

type stockWithML struct {
	report.StockSummary
	ML Summary `json:"ml"`
}

// GET /api/sku/:skuId/forecast
func ForecastHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sku := NormalizeSKU(c.Params("skuId"))
		horizon := c.QueryInt("horizon", defaultHorizon)

		data, err := client.Forecast(c.Context(), sku, horizon)
		if err != nil {
			logrus.WithError(err).WithField("sku", sku).Warn("forecast call failed")
			return fiber.NewError(fiber.StatusBadGateway, "ML forecast failed")
		}
		return c.JSON(data)
	}
}

// GET /api/sku/:skuId/reorder
func ReorderHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sku := NormalizeSKU(c.Params("skuId"))
		lead := c.QueryInt("leadTimeDays", defaultLeadTimeDays)
		z := queryFloat(c, "z", defaultZ)

		data, err := client.Reorder(c.Context(), sku, lead, z)
		if err != nil {
			logrus.WithError(err).WithField("sku", sku).Warn("reorder call failed")
			return fiber.NewError(fiber.StatusBadGateway, "ML reorder failed")
		}
		return c.JSON(data)
	}
}

// GET /api/stock/with-ml — current stock joined with a reorder suggestion
// and a short forecast per material. ML failures degrade per material.
func StockWithMLHandler(db *gorm.DB, client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lead := c.QueryInt("leadTimeDays", defaultLeadTimeDays)
		z := queryFloat(c, "z", defaultZ)
		horizon := c.QueryInt("horizon", defaultHorizon)

		var materials []models.Material
		if err := db.Preload("GRNs").Preload("IssueItems").
			Where("is_active = ?", true).
			Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to combine stock with ML")
		}

		items := make([]stockWithML, len(materials))
		var wg sync.WaitGroup
		for i, m := range materials {
			items[i].StockSummary = report.Summarize(m)
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				items[i].ML = enrich(c.Context(), client, name, lead, z, horizon)
			}(i, m.Name)
		}
		wg.Wait()

		return c.JSON(fiber.Map{"count": len(items), "items": items})
	}
}

// GET /api/materials/:id/with-ml
func MaterialWithMLHandler(db *gorm.DB, client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id.")
		}
		lead := c.QueryInt("leadTimeDays", defaultLeadTimeDays)
		z := queryFloat(c, "z", defaultZ)
		horizon := c.QueryInt("horizon", defaultHorizon)

		var m models.Material
		if err := db.Preload("GRNs").Preload("IssueItems").First(&m, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Material not found")
		}

		row := stockWithML{
			StockSummary: report.Summarize(m),
			ML:           enrich(c.Context(), client, m.Name, lead, z, horizon),
		}
		return c.JSON(row)
	}
}

// enrich calls both ML endpoints for one material and folds the results,
// recording errors instead of propagating them.
func enrich(ctx context.Context, client *Client, materialName string, lead int, z float64, horizon int) Summary {
	sku := NormalizeSKU(materialName)
	out := Summary{SkuUsed: sku, LeadTimeDays: lead, Z: z}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fc, err := client.Forecast(ctx, sku, horizon)
		if err != nil {
			msg := err.Error()
			out.Errors.Forecast = &msg
			return
		}
		out.Forecast = fc.Forecast
		sum := 0.0
		for _, v := range fc.Forecast {
			sum += v
		}
		out.ForecastSum = &sum
	}()
	go func() {
		defer wg.Done()
		ro, err := client.Reorder(ctx, sku, lead, z)
		if err != nil {
			msg := err.Error()
			out.Errors.Reorder = &msg
			return
		}
		out.SafetyStock = &ro.SafetyStock
		out.ReorderPoint = &ro.ReorderPoint
		out.SuggestedOrder = &ro.SuggestedOrder
	}()
	wg.Wait()

	return out
}

func queryFloat(c *fiber.Ctx, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
