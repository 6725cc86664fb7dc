package report

import (
	"sort"
	"time"

	"matstock-backend/internal/models"

	"github.com/shopspring/decimal"
)

// StockSummary is one row of the per-material stock report.
type StockSummary struct {
	MaterialID     uint            `json:"materialId"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	Category       string          `json:"category"`
	TotalReceived  decimal.Decimal `json:"totalReceived"`
	TotalIssued    decimal.Decimal `json:"totalIssued"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	MinStockLevel  decimal.Decimal `json:"minStockLevel"`
	BelowMin       bool            `json:"belowMin"`
}

// Movement is one row of the merged receipt/issue stream.
type Movement struct {
	Type       string          `json:"type"` // "GRN" or "ISSUE"
	Material   string          `json:"material"`
	MaterialID uint            `json:"materialId"`
	Date       time.Time       `json:"date"`
	Quantity   decimal.Decimal `json:"quantity"`
	Rate       decimal.Decimal `json:"rate"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference"`
	Supplier   string          `json:"supplier,omitempty"`
}

// Valuation is one row of the remaining-stock valuation report.
type Valuation struct {
	MaterialID        uint            `json:"materialId"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	WeightedRate      decimal.Decimal `json:"weightedRate"`
	Valuation         decimal.Decimal `json:"valuation"`
}

// Summarize folds a material's lots and issue items into a stock summary.
// Deactivated lots still count toward received/remaining so the history
// stays consistent with what was booked.
func Summarize(m models.Material) StockSummary {
	totalReceived := decimal.Zero
	totalRemaining := decimal.Zero
	for _, g := range m.GRNs {
		totalReceived = totalReceived.Add(g.Quantity)
		totalRemaining = totalRemaining.Add(g.Remaining)
	}
	totalIssued := decimal.Zero
	for _, it := range m.IssueItems {
		totalIssued = totalIssued.Add(it.Quantity)
	}
	return StockSummary{
		MaterialID:     m.ID,
		Name:           m.Name,
		Unit:           m.Unit,
		Category:       m.Category,
		TotalReceived:  totalReceived,
		TotalIssued:    totalIssued,
		TotalRemaining: totalRemaining,
		MinStockLevel:  m.MinStockLevel,
		BelowMin:       totalRemaining.LessThan(m.MinStockLevel),
	}
}

// SummarizeAll maps Summarize over a material list.
func SummarizeAll(materials []models.Material) []StockSummary {
	out := make([]StockSummary, 0, len(materials))
	for _, m := range materials {
		out = append(out, Summarize(m))
	}
	return out
}

// MergeMovements interleaves receipts and issues into one stream sorted by
// date ascending. Receipts sort before issues on equal timestamps.
func MergeMovements(grns []models.GRN, issues []models.IssueNote) []Movement {
	out := make([]Movement, 0, len(grns)+len(issues))
	for _, g := range grns {
		name := ""
		if g.Material != nil {
			name = g.Material.Name
		}
		out = append(out, Movement{
			Type:       "GRN",
			Material:   name,
			MaterialID: g.MaterialID,
			Date:       g.ReceivedDate,
			Quantity:   g.Quantity,
			Rate:       g.Rate,
			Amount:     g.Amount,
			Reference:  g.GRNNumber,
			Supplier:   g.SupplierName,
		})
	}
	for _, n := range issues {
		name := ""
		if n.Material != nil {
			name = n.Material.Name
		}
		out = append(out, Movement{
			Type:       "ISSUE",
			Material:   name,
			MaterialID: n.MaterialID,
			Date:       n.IssueDate,
			Quantity:   n.TotalQuantity,
			Rate:       n.WeightedRate,
			Amount:     n.TotalAmount,
			Reference:  n.IssueNumber,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Type == "GRN" && out[j].Type == "ISSUE"
	})
	return out
}

// Valuate prices a material's remaining stock at each lot's receipt rate.
// The weighted rate is total value over remaining quantity; zero when the
// material has no stock left.
func Valuate(m models.Material) Valuation {
	totalRemaining := decimal.Zero
	totalValue := decimal.Zero
	for _, g := range m.GRNs {
		totalRemaining = totalRemaining.Add(g.Remaining)
		totalValue = totalValue.Add(g.Remaining.Mul(g.Rate))
	}
	weightedRate := decimal.Zero
	if totalRemaining.IsPositive() {
		weightedRate = totalValue.Div(totalRemaining).Round(2)
	}
	return Valuation{
		MaterialID:        m.ID,
		Name:              m.Name,
		Category:          m.Category,
		Unit:              m.Unit,
		RemainingQuantity: totalRemaining,
		WeightedRate:      weightedRate,
		Valuation:         totalValue.Round(2),
	}
}
