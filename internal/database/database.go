package database

import (
	"fmt"
	"os"

	"github.com/tracklet/tracklet-api/internal/database/migrations"
	"github.com/tracklet/tracklet-api/internal/inventory"
	"github.com/tracklet/tracklet-api/internal/notifications"
	"github.com/tracklet/tracklet-api/internal/orders"
	"github.com/tracklet/tracklet-api/internal/plants"
	"github.com/tracklet/tracklet-api/internal/rates"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection.
// The sqlite file path comes from DB_PATH, defaulting to tracklet.db.
func NewDatabase() (*gorm.DB, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "tracklet.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&plants.GasPlant{},
		&inventory.Tank{},
		&inventory.StockTransaction{},
		&rates.RateEntry{},
		&orders.Order{},
		&orders.IdempotencyRecord{},
		&notifications.Notification{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddLedgerIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
