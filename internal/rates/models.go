package rates

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateEntry is one row of the append-only rate history. The current rate is
// always the most recent entry, so it survives restarts and is shared across
// instances.
type RateEntry struct {
	gorm.Model `json:"-"`
	RateID     string          `gorm:"uniqueIndex" json:"rate_id"`
	Rate       decimal.Decimal `gorm:"type:decimal(20,8)" json:"rate"` // per kg
	SetBy      string          `json:"set_by"`
	Date       time.Time       `gorm:"index" json:"date"`
}
