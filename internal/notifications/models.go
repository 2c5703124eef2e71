package notifications

import (
	"time"

	"gorm.io/gorm"
)

// Notification types
const (
	TypeOrderStatus = "order_status"
	TypeLowStock    = "low_stock"
)

// Notification is a persisted message for one recipient. Delivery transport
// is out of scope here; consumers poll the list endpoint.
type Notification struct {
	gorm.Model     `json:"-"`
	NotificationID string    `gorm:"uniqueIndex" json:"notification_id"`
	RecipientID    string    `gorm:"index" json:"recipient_id"`
	Type           string    `gorm:"index" json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	OrderID        string    `json:"order_id"`
	Read           bool      `gorm:"index" json:"read"`
	Date           time.Time `json:"date"`
}
