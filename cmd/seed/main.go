package main

import (
	"context"
	"time"

	"matstock-backend/internal/config"
	"matstock-backend/internal/database"
	"matstock-backend/internal/fifo"
	"matstock-backend/internal/issue"
	"matstock-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Seeds the demo data set: three materials, four received lots and four
// issue notes. Issues go through the ledger so lot balances and weighted
// rates come out exactly as production commits would produce them.
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}

	logrus.Info("seeding database")

	cement := createMaterial(db, "Cement", "High quality cement", "Bags", "Construction", "50")
	steel := createMaterial(db, "Steel", "Reinforcement bars", "Kg", "Construction", "100")
	sand := createMaterial(db, "Sand", "River sand", "Ton", "Construction", "30")

	createGRN(db, "GRN-001", cement.ID, "100", "350", "ABC Supplier", "2025-08-14")
	createGRN(db, "GRN-002", steel.ID, "50", "50000", "XYZ Supplier", "2025-08-15")
	createGRN(db, "GRN-003", sand.ID, "40", "1200", "SandCo", "2025-08-16")
	createGRN(db, "GRN-004", cement.ID, "80", "360", "ABC Supplier", "2025-08-18")

	ledger := fifo.NewLedger(issue.NewStore(db))
	commitIssue(ledger, cement.ID, "20", "ISS-001", "2025-08-16")
	commitIssue(ledger, steel.ID, "10", "ISS-002", "2025-08-17")
	commitIssue(ledger, cement.ID, "30", "ISS-003", "2025-08-19")
	commitIssue(ledger, sand.ID, "15", "ISS-004", "2025-08-20")

	logrus.Info("seeding completed")
}

func createMaterial(db *gorm.DB, name, description, unit, category, minStock string) models.Material {
	m := models.Material{
		Name:          name,
		Description:   description,
		Unit:          unit,
		Category:      category,
		MinStockLevel: mustDecimal(minStock),
		IsActive:      true,
	}
	if err := db.Create(&m).Error; err != nil {
		logrus.WithError(err).WithField("material", name).Fatal("seed material failed")
	}
	return m
}

func createGRN(db *gorm.DB, number string, materialID uint, quantity, rate, supplier, received string) {
	qty := mustDecimal(quantity)
	r := mustDecimal(rate)
	g := models.GRN{
		GRNNumber:    number,
		MaterialID:   materialID,
		Quantity:     qty,
		Remaining:    qty,
		Rate:         r,
		Amount:       qty.Mul(r).Round(2),
		SupplierName: supplier,
		ReceivedDate: mustDay(received),
		IsActive:     true,
	}
	if err := db.Create(&g).Error; err != nil {
		logrus.WithError(err).WithField("grn", number).Fatal("seed grn failed")
	}
}

func commitIssue(ledger *fifo.Ledger, materialID uint, quantity, number, date string) {
	_, _, err := ledger.Commit(context.Background(), materialID, mustDecimal(quantity), number, mustDay(date))
	if err != nil {
		logrus.WithError(err).WithField("issue", number).Fatal("seed issue failed")
	}
}

func mustDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		logrus.Fatal(err)
	}
	return v
}

func mustDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		logrus.Fatal(err)
	}
	return t
}
