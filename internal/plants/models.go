package plants

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gas plant statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// GasPlant is a gas-plant account, the owner of tanks and orders. PerKgPrice
// is the plant's current selling rate, kept in sync by the rates service.
type GasPlant struct {
	gorm.Model `json:"-"`
	PlantID    string          `gorm:"uniqueIndex" json:"plant_id"`
	Name       string          `json:"name"`
	Email      string          `gorm:"uniqueIndex" json:"email"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	PerKgPrice decimal.Decimal `gorm:"type:decimal(20,8)" json:"per_kg_price"`
	Status     string          `gorm:"index" json:"status"` // active, inactive
}
