package notifications

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateNotification(notification *Notification) error {
	return d.db.Create(notification).Error
}

func (d *Database) GetByRecipient(recipientID string, unreadOnly bool) ([]Notification, error) {
	query := d.db.Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var result []Notification
	if err := query.Order("date DESC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Database) MarkRead(notificationID string) error {
	result := d.db.Model(&Notification{}).
		Where("notification_id = ?", notificationID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (d *Database) MarkAllRead(recipientID string) error {
	return d.db.Model(&Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
}

// HasRecentLowStockNotice reports whether the recipient was already warned
// about low stock since the given time, so the monitor does not repeat
// itself every sweep.
func (d *Database) HasRecentLowStockNotice(recipientID string, since time.Time) (bool, error) {
	var notification Notification
	err := d.db.Where("recipient_id = ? AND type = ? AND date >= ?", recipientID, TypeLowStock, since).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
