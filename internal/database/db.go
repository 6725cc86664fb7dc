package database

import (
	"fmt"

	"matstock-backend/internal/config"
	"matstock-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres and runs migrations. The handle is passed
// around explicitly; nothing in the codebase holds a global connection.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates/updates the schema. Split from Open so tests can run it
// against their own driver.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Material{},
		&models.GRN{},
		&models.IssueNote{},
		&models.IssueItem{},
		&models.User{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
