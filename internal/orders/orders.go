package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tracklet/tracklet-api/internal/inventory"
	"github.com/tracklet/tracklet-api/internal/notifications"
	"github.com/tracklet/tracklet-api/internal/plants"
	"github.com/tracklet/tracklet-api/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidStatus     = errors.New("invalid status, must be one of: new, in_progress, completed, cancelled")
	ErrInvalidTransition = errors.New("order cannot move to the requested status")
)

// Service handles the order workflow. Accepting an order is the consumer of
// the sequential stock allocator: the order's quantity is drawn from the
// plant's tanks in name order with the order id as the ledger correlation.
type Service struct {
	db            *Database
	inventory     *inventory.Service
	plants        *plants.Service
	notifications *notifications.Service
}

// NewService creates a new order service with its collaborators
func NewService(gormDB *gorm.DB, inventoryService *inventory.Service, plantService *plants.Service, notificationService *notifications.Service) *Service {
	return &Service{
		db:            NewDatabase(gormDB),
		inventory:     inventoryService,
		plants:        plantService,
		notifications: notificationService,
	}
}

// CreateOrder creates a new order with idempotency support. Retries with the
// same idempotency key return the order created the first time.
func (s *Service) CreateOrder(order *Order, idempotencyKey string) error {
	record, err := s.db.GetIdempotencyRecord(idempotencyKey)
	if err != nil {
		return err
	}
	if record != nil && record.ExpiresAt.After(time.Now()) {
		existing, err := s.db.GetOrder(record.ResourceID)
		if err != nil {
			return err
		}
		*order = *existing
		return nil
	}

	if order.Quantity.Sign() <= 0 {
		return ErrInvalidQuantity
	}

	plant, err := s.plants.GetPlant(order.OwnerID)
	if err != nil {
		return err
	}
	if order.Rate.Sign() == 0 {
		order.Rate = plant.PerKgPrice
	}

	order.OrderID = "ORD_" + uuid.New().String()
	order.Status = StatusNew
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	if err := s.db.CreateOrderWithIdempotency(order, idempotencyKey); err != nil {
		return err
	}

	if _, err := s.notifications.Notify(order.OwnerID, notifications.TypeOrderStatus,
		"New order received",
		fmt.Sprintf("Order for %s tons from %s", order.Quantity.String(), order.CustomerName),
		order.OrderID); err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to create order notification")
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("owner_id", order.OwnerID).
		Str("quantity", order.Quantity.String()).
		Msg("order created")
	return nil
}

// GetOrder retrieves an order by its ID
func (s *Service) GetOrder(orderID string) (*Order, error) {
	return s.db.GetOrder(orderID)
}

// ListOrders returns a plant's orders, newest first, optionally filtered by
// status.
func (s *Service) ListOrders(ownerID, status string) ([]Order, error) {
	if status != "" && !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.db.GetOrdersByOwner(ownerID, status)
}

// UpdateOrderStatus moves an order through its lifecycle. Accepting a new
// order (new -> in_progress) deducts its quantity from the plant's tanks
// sequentially; a shortfall blocks acceptance and the order stays new.
func (s *Service) UpdateOrderStatus(orderID, status, driverName string) (*Order, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	switch status {
	case StatusInProgress:
		if order.Status != StatusNew {
			return nil, ErrInvalidTransition
		}
		deducted, err := s.inventory.DeductStock(order.OwnerID, order.Quantity, order.Rate, order.OrderID, inventory.PolicySequential)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("order_id", order.OrderID).
			Int("tanks_drawn", len(deducted)).
			Msg("stock reserved for accepted order")

	case StatusCompleted:
		if order.Status != StatusInProgress {
			return nil, ErrInvalidTransition
		}

	case StatusCancelled:
		if order.Status != StatusNew && order.Status != StatusInProgress {
			return nil, ErrInvalidTransition
		}

	case StatusNew:
		return nil, ErrInvalidTransition
	}

	order.Status = status
	if driverName != "" {
		order.DriverName = driverName
	}
	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrder(order); err != nil {
		return nil, err
	}

	if _, err := s.notifications.Notify(order.OwnerID, notifications.TypeOrderStatus,
		"Order status changed",
		fmt.Sprintf("Order %s moved from %s to %s", order.OrderID, previous, order.Status),
		order.OrderID); err != nil {
		log.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to create status notification")
	}

	return order, nil
}

func validStatus(status string) bool {
	switch status {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// GinHandlers contains HTTP handlers for order endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for order endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func handleError(c *gin.Context, err error) {
	var shortfall *inventory.InsufficientStockError
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, plants.ErrPlantNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidTransition),
		errors.As(err, &shortfall):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

type createOrderRequest struct {
	OwnerID         string          `json:"owner_id" binding:"required"`
	CustomerName    string          `json:"customer_name" binding:"required"`
	CustomerPhone   string          `json:"customer_phone"`
	DeliveryAddress string          `json:"delivery_address"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Rate            decimal.Decimal `json:"rate"`
	Notes           string          `json:"notes"`
}

type updateOrderRequest struct {
	Status     string `json:"status" binding:"required"`
	DriverName string `json:"driver_name"`
}

// CreateOrderHandler handles POST requests to place new orders
// Requires an Idempotency-Key header
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order := &Order{
			OwnerID:         req.OwnerID,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			DeliveryAddress: req.DeliveryAddress,
			Quantity:        req.Quantity,
			Rate:            req.Rate,
			Notes:           req.Notes,
		}
		if err := h.service.CreateOrder(order, idempotencyKey); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, order)
	}
}

// GetOrderHandler handles GET requests for a single order
// URL parameter: order_id
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.GetOrder(c.Param("order_id"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, order)
	}
}

// ListOrdersHandler handles GET requests for a plant's orders
// URL parameter: owner_id; query: status
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.ListOrders(c.Param("owner_id"), c.Query("status"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, result)
	}
}

// UpdateOrderHandler handles PUT requests to accept, complete or cancel an
// order and optionally assign a driver
// URL parameter: order_id
func (h *GinHandlers) UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.UpdateOrderStatus(c.Param("order_id"), req.Status, req.DriverName)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, order)
	}
}
