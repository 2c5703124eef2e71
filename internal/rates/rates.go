package rates

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tracklet/tracklet-api/internal/plants"
	"github.com/tracklet/tracklet-api/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrInvalidRate = errors.New("rate must be greater than zero")
	ErrNoRateSet   = errors.New("no rate has been set")
)

// Service handles the per-kg rate and its history
type Service struct {
	db *Database
}

// NewService creates a new rates service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// SetRate appends a new history entry and fans the rate out to every active
// gas plant's per-kg price. Both writes share one storage transaction.
func (s *Service) SetRate(rate decimal.Decimal, setBy string) (*RateEntry, error) {
	if rate.Sign() <= 0 {
		return nil, ErrInvalidRate
	}

	entry := &RateEntry{
		RateID: "RTE_" + uuid.New().String(),
		Rate:   rate,
		SetBy:  setBy,
		Date:   time.Now(),
	}

	var updated int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		var err error
		updated, err = plants.UpdateActivePlantRates(tx, rate)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("rate", rate.String()).
		Int64("plants_updated", updated).
		Msg("rate updated")
	return entry, nil
}

// GetCurrentRate returns the most recently set rate.
func (s *Service) GetCurrentRate() (*RateEntry, error) {
	return s.db.GetLatestRate()
}

// GetHistory returns the rate history, newest first, optionally filtered to
// one month and/or year. Zero means no filter.
func (s *Service) GetHistory(month, year int) ([]RateEntry, error) {
	entries, err := s.db.GetHistory()
	if err != nil {
		return nil, err
	}
	if month == 0 && year == 0 {
		return entries, nil
	}

	filtered := make([]RateEntry, 0, len(entries))
	for _, entry := range entries {
		if month != 0 && int(entry.Date.Month()) != month {
			continue
		}
		if year != 0 && entry.Date.Year() != year {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered, nil
}

// GinHandlers contains HTTP handlers for rate endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for rate endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type setRateRequest struct {
	Rate decimal.Decimal `json:"rate" binding:"required"`
}

// SetRateHandler handles POST requests to set today's rate
func (h *GinHandlers) SetRateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setRateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		entry, err := h.service.SetRate(req.Rate, c.GetString("clientID"))
		if err != nil {
			if errors.Is(err, ErrInvalidRate) {
				response.BadRequest(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, entry)
	}
}

// GetCurrentRateHandler handles GET requests for the current rate
func (h *GinHandlers) GetCurrentRateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := h.service.GetCurrentRate()
		if err != nil {
			if errors.Is(err, ErrNoRateSet) {
				response.NotFound(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, entry)
	}
}

// GetHistoryHandler handles GET requests for the rate history
// Query parameters: month (1-12), year
func (h *GinHandlers) GetHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		month, _ := strconv.Atoi(c.Query("month"))
		year, _ := strconv.Atoi(c.Query("year"))

		entries, err := h.service.GetHistory(month, year)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, entries)
	}
}
