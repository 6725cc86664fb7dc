package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard expects plain JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// Material: a trackable stock item. Never hard-deleted while referenced;
// deletion only flips IsActive.
type Material struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Description   string          `gorm:"size:255" json:"description"`
	Unit          string          `gorm:"size:20;not null" json:"unit"`
	Category      string          `gorm:"size:50" json:"category"`
	MinStockLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"minStockLevel"`
	IsActive      bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	GRNs       []GRN       `gorm:"foreignKey:MaterialID" json:"grns,omitempty"`
	IssueItems []IssueItem `gorm:"foreignKey:MaterialID" json:"issueItems,omitempty"`
}
