package migrations

import (
	"gorm.io/gorm"
)

// AddLedgerIndexes creates composite indexes for the ledger query patterns
// the stats and transaction endpoints rely on.
func AddLedgerIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for the owner + date range queries
		`CREATE INDEX IF NOT EXISTS idx_stock_transactions_owner_date
		 ON stock_transactions(owner_id, date)`,

		// Composite index for owner + type filtering (stats rollups)
		`CREATE INDEX IF NOT EXISTS idx_stock_transactions_owner_type
		 ON stock_transactions(owner_id, type)`,

		// Index for order correlation lookups
		`CREATE INDEX IF NOT EXISTS idx_stock_transactions_order_id
		 ON stock_transactions(order_id)`,

		// Composite index for the allocator's active-tank scan
		`CREATE INDEX IF NOT EXISTS idx_tanks_owner_status
		 ON tanks(owner_id, status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
