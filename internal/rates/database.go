package rates

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

// GetLatestRate returns the newest history entry, which is the current rate.
func (d *Database) GetLatestRate() (*RateEntry, error) {
	var entry RateEntry
	if err := d.db.Order("date DESC, id DESC").First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRateSet
		}
		return nil, err
	}
	return &entry, nil
}

func (d *Database) GetHistory() ([]RateEntry, error) {
	var entries []RateEntry
	if err := d.db.Order("date DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Transaction runs fn inside a single storage transaction, covering the new
// history entry and the plant price fan-out.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}
