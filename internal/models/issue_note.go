package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueNote: one FIFO consumption event for a material. Owns its items;
// they are created and deleted together.
type IssueNote struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	IssueNumber   string          `gorm:"size:50;index;not null" json:"issueNumber"`
	MaterialID    uint            `gorm:"index;not null" json:"materialId"`
	Material      *Material       `json:"material,omitempty"`
	IssueDate     time.Time       `gorm:"index;not null" json:"issueDate"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"totalQuantity"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalAmount"`
	WeightedRate  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"weightedRate"` // TotalAmount / TotalQuantity
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Items []IssueItem `gorm:"foreignKey:IssueNoteID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IssueItem: the part of an issue taken from one GRN lot, at that lot's rate.
type IssueItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	IssueNoteID uint            `gorm:"index;not null" json:"issueNoteId"`
	GRNID       uint            `gorm:"column:grn_id;index;not null" json:"grnId"`
	MaterialID  uint            `gorm:"index;not null" json:"materialId"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"` // Quantity * Rate
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
