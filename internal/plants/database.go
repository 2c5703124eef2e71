package plants

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreatePlant(plant *GasPlant) error {
	return d.db.Create(plant).Error
}

func (d *Database) GetPlant(plantID string) (*GasPlant, error) {
	var plant GasPlant
	if err := d.db.Where("plant_id = ?", plantID).First(&plant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, err
	}
	return &plant, nil
}

func (d *Database) GetPlantByEmail(email string) (*GasPlant, error) {
	var plant GasPlant
	if err := d.db.Where("email = ?", email).First(&plant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, err
	}
	return &plant, nil
}

func (d *Database) ListPlants() ([]GasPlant, error) {
	var plants []GasPlant
	if err := d.db.Order("created_at DESC").Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

func (d *Database) UpdatePlant(plant *GasPlant) error {
	return d.db.Save(plant).Error
}

// UpdateActivePlantRates sets every active plant's per-kg price inside the
// given transaction, so a rate change and its history entry commit together.
func UpdateActivePlantRates(tx *gorm.DB, rate decimal.Decimal) (int64, error) {
	result := tx.Model(&GasPlant{}).
		Where("status = ?", StatusActive).
		Update("per_kg_price", rate)
	return result.RowsAffected, result.Error
}
