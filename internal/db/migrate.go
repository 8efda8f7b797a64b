package db

import (
	"fmt"

	"github.com/zulandar/bomsync/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the GORM models in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Rack{},
		&models.HistoryEvent{},
	}
}

// AutoMigrate creates or updates the rack and history tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops the rack and history tables and recreates them empty.
// The workbook is never touched; only tracking state is lost.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return AutoMigrate(db)
}
