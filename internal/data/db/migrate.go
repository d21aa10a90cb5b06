package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
)

// Service is the warehouse handle the app wires; both engines satisfy it.
type Service interface {
	DB() *gorm.DB
	AutoMigrateAll() error
	Close() error
}

// AutoMigrateAll creates tables in foreign-key dependency order.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Dimensions
		// =========================
		&types.Country{},
		&types.Customer{},
		&types.Product{},
		&types.CalendarDay{},

		// =========================
		// Facts
		// =========================
		&types.SalesLineItem{},

		// =========================
		// Models + run bookkeeping
		// =========================
		&types.ModelSnapshot{},
		&types.PipelineRun{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
