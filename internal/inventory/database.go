package inventory

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateTank(tank *Tank) error {
	return d.db.Create(tank).Error
}

func (d *Database) GetTank(tankID string) (*Tank, error) {
	var tank Tank
	if err := d.db.Where("tank_id = ?", tankID).First(&tank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTankNotFound
		}
		return nil, err
	}
	return &tank, nil
}

func (d *Database) GetTanksByOwner(ownerID string) ([]Tank, error) {
	var tanks []Tank
	if err := d.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&tanks).Error; err != nil {
		return nil, err
	}
	return tanks, nil
}

func (d *Database) UpdateTank(tank *Tank) error {
	return d.db.Save(tank).Error
}

func (d *Database) DeleteTank(tank *Tank) error {
	return d.db.Delete(tank).Error
}

// GetTransactionsByOwner returns the owner's ledger, newest first, optionally
// narrowed by type and an inclusive date range.
func (d *Database) GetTransactionsByOwner(ownerID string, filter TransactionFilter) ([]StockTransaction, error) {
	query := d.db.Where("owner_id = ?", ownerID)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}

	var transactions []StockTransaction
	if err := query.Order("date DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// Transaction runs fn inside a single storage transaction. Tank mutations and
// their paired ledger entries must go through this so neither is observable
// without the other.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

// getTankForUpdate re-reads a tank inside an open transaction.
func getTankForUpdate(tx *gorm.DB, tankID string) (*Tank, error) {
	var tank Tank
	if err := tx.Where("tank_id = ?", tankID).First(&tank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTankNotFound
		}
		return nil, err
	}
	return &tank, nil
}

// getActiveTanksForUpdate loads the owner's active tanks inside an open
// transaction. Ordering is left to the allocator, which sorts the snapshot
// itself so policy tie-breaks stay in one place.
func getActiveTanksForUpdate(tx *gorm.DB, ownerID string) ([]Tank, error) {
	var tanks []Tank
	if err := tx.Where("owner_id = ? AND status = ?", ownerID, StatusActive).Find(&tanks).Error; err != nil {
		return nil, err
	}
	return tanks, nil
}
