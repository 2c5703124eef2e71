package notifications

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tracklet/tracklet-api/pkg/response"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Service handles notification persistence
type Service struct {
	db *Database
}

// NewService creates a new notifications service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Notify persists a notification for a recipient.
func (s *Service) Notify(recipientID, notificationType, title, message, orderID string) (*Notification, error) {
	notification := &Notification{
		NotificationID: "NTF_" + uuid.New().String(),
		RecipientID:    recipientID,
		Type:           notificationType,
		Title:          title,
		Message:        message,
		OrderID:        orderID,
		Date:           time.Now(),
	}
	if err := s.db.CreateNotification(notification); err != nil {
		return nil, err
	}

	log.Debug().
		Str("notification_id", notification.NotificationID).
		Str("recipient_id", recipientID).
		Str("type", notificationType).
		Msg("notification created")
	return notification, nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *Service) ListNotifications(recipientID string, unreadOnly bool) ([]Notification, error) {
	return s.db.GetByRecipient(recipientID, unreadOnly)
}

// MarkRead flags a single notification as read.
func (s *Service) MarkRead(notificationID string) error {
	return s.db.MarkRead(notificationID)
}

// MarkAllRead flags all of the recipient's notifications as read.
func (s *Service) MarkAllRead(recipientID string) error {
	return s.db.MarkAllRead(recipientID)
}

// GetDB exposes the database wrapper for the low-stock monitor.
func (s *Service) GetDB() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for notification endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for notification endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListNotificationsHandler handles GET requests for a recipient's notifications
// URL parameter: recipient_id; query: unread=true to filter
func (h *GinHandlers) ListNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		unreadOnly := c.Query("unread") == "true"
		result, err := h.service.ListNotifications(c.Param("recipient_id"), unreadOnly)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, result)
	}
}

// MarkReadHandler handles PUT requests to mark one notification read
// URL parameter: notification_id
func (h *GinHandlers) MarkReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.MarkRead(c.Param("notification_id")); err != nil {
			if errors.Is(err, ErrNotificationNotFound) {
				response.NotFound(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, gin.H{"message": "notification marked as read"})
	}
}

// MarkAllReadHandler handles PUT requests to mark all of a recipient's
// notifications read
// URL parameter: recipient_id
func (h *GinHandlers) MarkAllReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.MarkAllRead(c.Param("recipient_id")); err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, gin.H{"message": "all notifications marked as read"})
	}
}
