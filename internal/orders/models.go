package orders

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Order is a customer gas order placed against one gas plant. Quantity is in
// tons; Rate is the plant's per-kg price captured at order time. Accepting an
// order draws the quantity down from the plant's tanks sequentially.
type Order struct {
	gorm.Model      `json:"-"`
	OrderID         string          `gorm:"uniqueIndex" json:"order_id"`
	OwnerID         string          `gorm:"index" json:"owner_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	DeliveryAddress string          `json:"delivery_address"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,8)" json:"quantity"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,8)" json:"rate"`
	Status          string          `gorm:"index" json:"status"` // new, in_progress, completed, cancelled
	DriverName      string          `json:"driver_name"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IdempotencyRecord prevents duplicate order creation when a client retries
// a request with the same Idempotency-Key header.
type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
}
