package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tank statuses
const (
	StatusActive      = "Active"
	StatusInactive    = "Inactive"
	StatusMaintenance = "Maintenance"
)

// Stock transaction types
const (
	TxTypeAdd      = "add"
	TxTypeDeduct   = "deduct"
	TxTypeFreeze   = "freeze"
	TxTypeUnfreeze = "unfreeze"
)

// Tank is a single storage tank belonging to one gas plant. Amounts are in
// tons, held as fixed-point decimals so exact-equality draw-downs behave
// deterministically.
type Tank struct {
	gorm.Model       `json:"-"`
	TankID           string          `gorm:"uniqueIndex" json:"tank_id"`
	Name             string          `gorm:"index" json:"name"`
	Location         string          `json:"location"`
	TotalCapacity    decimal.Decimal `gorm:"type:decimal(20,8)" json:"total_capacity"`
	Available        decimal.Decimal `gorm:"type:decimal(20,8)" json:"available"`
	FreezeGas        decimal.Decimal `gorm:"type:decimal(20,8)" json:"freeze_gas"`
	Status           string          `gorm:"index" json:"status"` // Active, Inactive, Maintenance
	OwnerID          string          `gorm:"index" json:"owner_id"`
	LastRecordedDate time.Time       `json:"last_recorded_date"`
}

// StockTransaction is one immutable ledger entry. Every mutation of a tank's
// available or frozen pool writes exactly one of these in the same storage
// transaction as the tank update.
type StockTransaction struct {
	gorm.Model    `json:"-"`
	TransactionID string          `gorm:"uniqueIndex" json:"transaction_id"`
	TankID        string          `gorm:"index" json:"tank_id"`
	TankName      string          `json:"tank_name"`
	Type          string          `gorm:"index" json:"type"` // add, deduct, freeze, unfreeze
	Amount        decimal.Decimal `gorm:"type:decimal(20,8)" json:"amount"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,8)" json:"rate"` // per kg rate at transaction time
	OrderID       string          `json:"order_id"`
	OwnerID       string          `gorm:"index" json:"owner_id"`
	Notes         string          `json:"notes"`
	Date          time.Time       `gorm:"index" json:"date"`
}

// TankDeduction reports how much a single tank contributed to a multi-tank
// deduction, in the order tanks were drawn from.
type TankDeduction struct {
	TankID   string          `json:"tank_id"`
	TankName string          `json:"tank_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// StockStats is the per-owner rollup served by the stats endpoint. The sales
// value is recomputed from the ledger on every call, never stored.
type StockStats struct {
	TotalCapacity  decimal.Decimal `json:"total_capacity"`
	TotalAvailable decimal.Decimal `json:"total_available"`
	TotalFrozen    decimal.Decimal `json:"total_frozen"`
	TotalTanks     int             `json:"total_tanks"`
	ActiveTanks    int             `json:"active_tanks"`
	TodayAdded     decimal.Decimal `json:"today_added"`
	TodayDeducted  decimal.Decimal `json:"today_deducted"`
	TodaySales     decimal.Decimal `json:"today_sales"`
}

// TransactionFilter narrows a ledger query. Zero values mean no filter; the
// date bounds are inclusive.
type TransactionFilter struct {
	Type      string
	StartDate *time.Time
	EndDate   *time.Time
}
