package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GRN: goods-received note, one batch of stock received for a material.
// Remaining is the live balance of the lot: 0 <= Remaining <= Quantity.
// It only decreases through FIFO consumption; a corrective edit may raise
// Quantity and recomputes Remaining against what was already issued.
type GRN struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	GRNNumber    string          `gorm:"column:grn_number;size:50;index;not null" json:"grnNumber"`
	MaterialID   uint            `gorm:"index;not null" json:"materialId"`
	Material     *Material       `json:"material,omitempty"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Remaining    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"remaining"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"rate"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"` // Quantity * Rate at receipt
	SupplierName string          `gorm:"size:100;not null" json:"supplierName"`
	ReceivedDate time.Time       `gorm:"index;not null" json:"receivedDate"`
	IsActive     bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (GRN) TableName() string { return "grns" }
