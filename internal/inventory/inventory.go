package inventory

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tracklet/tracklet-api/pkg/response"
	"gorm.io/gorm"
)

// Service handles tank inventory and the stock-transaction ledger.
type Service struct {
	db *Database

	mu         sync.Mutex
	ownerLocks map[string]*sync.Mutex
}

// NewService creates a new inventory service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		ownerLocks: make(map[string]*sync.Mutex),
	}
}

// lockOwner serializes stock mutations per owner. The lock spans the read,
// the invariant check and the write-back, so two concurrent deductions cannot
// both pass the availability check against a stale snapshot.
func (s *Service) lockOwner(ownerID string) func() {
	s.mu.Lock()
	lock, exists := s.ownerLocks[ownerID]
	if !exists {
		lock = &sync.Mutex{}
		s.ownerLocks[ownerID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateTank registers a new tank for an owner. Initial stock defaults to
// zero and must not exceed the tank's capacity.
func (s *Service) CreateTank(tank *Tank) error {
	if tank.TotalCapacity.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if tank.Available.Sign() < 0 || tank.Available.Cmp(tank.TotalCapacity) > 0 {
		return ErrCapacityExceeded
	}

	tank.TankID = "TNK_" + uuid.New().String()
	tank.FreezeGas = decimal.Zero
	if tank.Status == "" {
		tank.Status = StatusActive
	}
	tank.LastRecordedDate = time.Now()

	if err := s.db.CreateTank(tank); err != nil {
		return err
	}

	log.Info().
		Str("tank_id", tank.TankID).
		Str("owner_id", tank.OwnerID).
		Str("capacity", tank.TotalCapacity.String()).
		Msg("tank created")
	return nil
}

// GetTank retrieves a tank by its ID
func (s *Service) GetTank(tankID string) (*Tank, error) {
	return s.db.GetTank(tankID)
}

// ListTanks returns every tank belonging to the owner, newest first.
func (s *Service) ListTanks(ownerID string) ([]Tank, error) {
	return s.db.GetTanksByOwner(ownerID)
}

// UpdateTank changes a tank's descriptive fields. Capacity can only grow or
// shrink while it still covers the stock currently held.
func (s *Service) UpdateTank(tankID string, name, location, status string, totalCapacity *decimal.Decimal) (*Tank, error) {
	tank, err := s.db.GetTank(tankID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockOwner(tank.OwnerID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		tank, err = getTankForUpdate(tx, tankID)
		if err != nil {
			return err
		}

		if name != "" {
			tank.Name = name
		}
		if location != "" {
			tank.Location = location
		}
		if status != "" {
			tank.Status = status
		}
		if totalCapacity != nil {
			held := tank.Available.Add(tank.FreezeGas)
			if totalCapacity.Cmp(held) < 0 {
				return ErrCapacityExceeded
			}
			tank.TotalCapacity = *totalCapacity
		}
		return tx.Save(tank).Error
	})
	if err != nil {
		return nil, err
	}
	return tank, nil
}

// DeleteTank removes a tank. Tanks still holding stock cannot be deleted; the
// ledger keeps its history either way.
func (s *Service) DeleteTank(tankID string) error {
	tank, err := s.db.GetTank(tankID)
	if err != nil {
		return err
	}

	unlock := s.lockOwner(tank.OwnerID)
	defer unlock()

	tank, err = s.db.GetTank(tankID)
	if err != nil {
		return err
	}
	if tank.Available.Add(tank.FreezeGas).Sign() > 0 {
		return ErrTankNotEmpty
	}
	return s.db.DeleteTank(tank)
}

// applyStockChange runs a single-tank pool mutation and its paired ledger
// entry in one storage transaction. The mutate callback checks the operation's
// precondition against the freshly read tank and adjusts the pools.
func (s *Service) applyStockChange(tankID, txType string, amount, rate decimal.Decimal, notes string, mutate func(*Tank) error) (*Tank, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	owned, err := s.db.GetTank(tankID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockOwner(owned.OwnerID)
	defer unlock()

	var tank *Tank
	err = s.db.Transaction(func(tx *gorm.DB) error {
		tank, err = getTankForUpdate(tx, tankID)
		if err != nil {
			return err
		}

		if err := mutate(tank); err != nil {
			return err
		}
		tank.LastRecordedDate = time.Now()
		if err := tx.Save(tank).Error; err != nil {
			return err
		}

		record := StockTransaction{
			TransactionID: "TXN_" + uuid.New().String(),
			TankID:        tank.TankID,
			TankName:      tank.Name,
			Type:          txType,
			Amount:        amount,
			Rate:          rate,
			OwnerID:       tank.OwnerID,
			Notes:         notes,
			Date:          time.Now(),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tank_id", tankID).
		Str("type", txType).
		Str("amount", amount.String()).
		Msg("stock updated")
	return tank, nil
}

// AddStock adds amount tons of gas to a tank's available pool.
func (s *Service) AddStock(tankID string, amount, rate decimal.Decimal) (*Tank, error) {
	return s.applyStockChange(tankID, TxTypeAdd, amount, rate, "Gas added to tank", func(tank *Tank) error {
		if tank.Available.Add(amount).Cmp(tank.TotalCapacity) > 0 {
			return ErrCapacityExceeded
		}
		tank.Available = tank.Available.Add(amount)
		return nil
	})
}

// FreezeStock moves amount tons from the available pool to the frozen pool.
func (s *Service) FreezeStock(tankID string, amount decimal.Decimal) (*Tank, error) {
	return s.applyStockChange(tankID, TxTypeFreeze, amount, decimal.Zero, "Gas frozen in tank", func(tank *Tank) error {
		if amount.Cmp(tank.Available) > 0 {
			return ErrInsufficientAvailable
		}
		tank.Available = tank.Available.Sub(amount)
		tank.FreezeGas = tank.FreezeGas.Add(amount)
		return nil
	})
}

// UnfreezeStock moves amount tons back from the frozen pool to available.
func (s *Service) UnfreezeStock(tankID string, amount decimal.Decimal) (*Tank, error) {
	return s.applyStockChange(tankID, TxTypeUnfreeze, amount, decimal.Zero, "Gas unfrozen in tank", func(tank *Tank) error {
		if amount.Cmp(tank.FreezeGas) > 0 {
			return ErrInsufficientFrozen
		}
		tank.FreezeGas = tank.FreezeGas.Sub(amount)
		tank.Available = tank.Available.Add(amount)
		return nil
	})
}

// ListTransactions returns the owner's ledger entries, newest first.
func (s *Service) ListTransactions(ownerID string, filter TransactionFilter) ([]StockTransaction, error) {
	return s.db.GetTransactionsByOwner(ownerID, filter)
}

// GetStockStats recomputes the owner's rollup from tank state and today's
// ledger entries. Sales convert tons to kilograms before applying the per-kg
// rate.
func (s *Service) GetStockStats(ownerID string) (*StockStats, error) {
	tanks, err := s.db.GetTanksByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	stats := &StockStats{
		TotalCapacity:  decimal.Zero,
		TotalAvailable: decimal.Zero,
		TotalFrozen:    decimal.Zero,
		TotalTanks:     len(tanks),
		TodayAdded:     decimal.Zero,
		TodayDeducted:  decimal.Zero,
		TodaySales:     decimal.Zero,
	}

	for _, tank := range tanks {
		stats.TotalCapacity = stats.TotalCapacity.Add(tank.TotalCapacity)
		stats.TotalAvailable = stats.TotalAvailable.Add(tank.Available)
		stats.TotalFrozen = stats.TotalFrozen.Add(tank.FreezeGas)
		if tank.Status == StatusActive {
			stats.ActiveTanks++
		}
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	todayTransactions, err := s.db.GetTransactionsByOwner(ownerID, TransactionFilter{StartDate: &startOfDay})
	if err != nil {
		return nil, err
	}

	kgPerTon := decimal.NewFromInt(1000)
	for _, txn := range todayTransactions {
		switch txn.Type {
		case TxTypeAdd:
			stats.TodayAdded = stats.TodayAdded.Add(txn.Amount)
		case TxTypeDeduct:
			stats.TodayDeducted = stats.TodayDeducted.Add(txn.Amount)
			stats.TodaySales = stats.TodaySales.Add(txn.Amount.Mul(kgPerTon).Mul(txn.Rate))
		}
	}

	return stats, nil
}

// GinHandlers contains HTTP handlers for tank and stock endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for inventory endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// handleError maps inventory errors onto the response envelope. Bad amounts
// and bounds violations are caller errors, a shortfall carries its remainder
// in the message.
func handleError(c *gin.Context, err error) {
	var shortfall *InsufficientStockError
	switch {
	case errors.Is(err, ErrTankNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrInsufficientAvailable),
		errors.Is(err, ErrInsufficientFrozen),
		errors.Is(err, ErrUnknownPolicy):
		response.BadRequest(c, err.Error())
	case errors.As(err, &shortfall):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

type createTankRequest struct {
	Name          string          `json:"name" binding:"required"`
	Location      string          `json:"location"`
	TotalCapacity decimal.Decimal `json:"total_capacity" binding:"required"`
	Available     decimal.Decimal `json:"available"`
	OwnerID       string          `json:"owner_id" binding:"required"`
}

type updateTankRequest struct {
	Name          string           `json:"name"`
	Location      string           `json:"location"`
	Status        string           `json:"status"`
	TotalCapacity *decimal.Decimal `json:"total_capacity"`
}

type stockAmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Rate   decimal.Decimal `json:"rate"`
}

type deductStockRequest struct {
	OwnerID string          `json:"owner_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Rate    decimal.Decimal `json:"rate"`
	OrderID string          `json:"order_id"`
}

// CreateTankHandler handles POST requests to register a new tank
func (h *GinHandlers) CreateTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTankRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tank := &Tank{
			Name:          req.Name,
			Location:      req.Location,
			TotalCapacity: req.TotalCapacity,
			Available:     req.Available,
			OwnerID:       req.OwnerID,
		}
		if err := h.service.CreateTank(tank); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// GetTankHandler handles GET requests for a single tank
// URL parameter: tank_id
func (h *GinHandlers) GetTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tank, err := h.service.GetTank(c.Param("tank_id"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// ListTanksHandler handles GET requests for all of an owner's tanks
// URL parameter: owner_id
func (h *GinHandlers) ListTanksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tanks, err := h.service.ListTanks(c.Param("owner_id"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tanks)
	}
}

// UpdateTankHandler handles PUT requests to change tank metadata
func (h *GinHandlers) UpdateTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateTankRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tank, err := h.service.UpdateTank(c.Param("tank_id"), req.Name, req.Location, req.Status, req.TotalCapacity)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// DeleteTankHandler handles DELETE requests for a tank
func (h *GinHandlers) DeleteTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.DeleteTank(c.Param("tank_id")); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, gin.H{"message": "tank deleted successfully"})
	}
}

// AddGasHandler handles POST requests to add gas to a tank
func (h *GinHandlers) AddGasHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockAmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tank, err := h.service.AddStock(c.Param("tank_id"), req.Amount, req.Rate)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// FreezeGasHandler handles POST requests to freeze gas in a tank
func (h *GinHandlers) FreezeGasHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockAmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tank, err := h.service.FreezeStock(c.Param("tank_id"), req.Amount)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// UnfreezeGasHandler handles POST requests to unfreeze gas in a tank
func (h *GinHandlers) UnfreezeGasHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockAmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		tank, err := h.service.UnfreezeStock(c.Param("tank_id"), req.Amount)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, tank)
	}
}

// DeductStockHandler handles POST requests to deduct stock across tanks,
// draining the fullest tanks first.
func (h *GinHandlers) DeductStockHandler() gin.HandlerFunc {
	return h.deductHandler(PolicyGreedy)
}

// DeductStockSequentialHandler handles POST requests to deduct stock across
// tanks in name order, used by order acceptance.
func (h *GinHandlers) DeductStockSequentialHandler() gin.HandlerFunc {
	return h.deductHandler(PolicySequential)
}

func (h *GinHandlers) deductHandler(policy DeductionPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deductStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		deducted, err := h.service.DeductStock(req.OwnerID, req.Amount, req.Rate, req.OrderID, policy)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, gin.H{
			"message":        "stock deducted successfully",
			"deducted_tanks": deducted,
		})
	}
}

// ListTransactionsHandler handles GET requests for the owner's ledger
// URL parameter: owner_id; query: type, start_date, end_date (RFC 3339)
func (h *GinHandlers) ListTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := TransactionFilter{Type: c.Query("type")}

		if raw := c.Query("start_date"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.BadRequest(c, "invalid start_date")
				return
			}
			filter.StartDate = &t
		}
		if raw := c.Query("end_date"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.BadRequest(c, "invalid end_date")
				return
			}
			filter.EndDate = &t
		}

		transactions, err := h.service.ListTransactions(c.Param("owner_id"), filter)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, transactions)
	}
}

// StockStatsHandler handles GET requests for the owner's stock rollup
// URL parameter: owner_id
func (h *GinHandlers) StockStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.service.GetStockStats(c.Param("owner_id"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, stats)
	}
}
