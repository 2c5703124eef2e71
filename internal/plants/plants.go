package plants

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tracklet/tracklet-api/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrPlantNotFound  = errors.New("gas plant not found")
	ErrEmailTaken     = errors.New("a gas plant with this email already exists")
	ErrInvalidRate    = errors.New("per kg price must not be negative")
	ErrMissingDetails = errors.New("name and email are required")
)

// Service handles gas-plant account management
type Service struct {
	db *Database
}

// NewService creates a new gas-plant service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// RegisterPlant creates a new gas-plant account. Email addresses are unique
// across plants.
func (s *Service) RegisterPlant(plant *GasPlant) error {
	if plant.Name == "" || plant.Email == "" {
		return ErrMissingDetails
	}
	if plant.PerKgPrice.Sign() < 0 {
		return ErrInvalidRate
	}

	if existing, err := s.db.GetPlantByEmail(plant.Email); err == nil && existing != nil {
		return ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrPlantNotFound) {
		return err
	}

	plant.PlantID = "PLT_" + uuid.New().String()
	if plant.Status == "" {
		plant.Status = StatusActive
	}

	if err := s.db.CreatePlant(plant); err != nil {
		return err
	}

	log.Info().
		Str("plant_id", plant.PlantID).
		Str("email", plant.Email).
		Msg("gas plant registered")
	return nil
}

// GetPlant retrieves a gas plant by its ID
func (s *Service) GetPlant(plantID string) (*GasPlant, error) {
	return s.db.GetPlant(plantID)
}

// ListPlants returns all registered gas plants, newest first.
func (s *Service) ListPlants() ([]GasPlant, error) {
	return s.db.ListPlants()
}

// UpdatePlant changes a plant's profile fields.
func (s *Service) UpdatePlant(plantID string, name, phone, address, status string, perKgPrice *decimal.Decimal) (*GasPlant, error) {
	plant, err := s.db.GetPlant(plantID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		plant.Name = name
	}
	if phone != "" {
		plant.Phone = phone
	}
	if address != "" {
		plant.Address = address
	}
	if status != "" {
		plant.Status = status
	}
	if perKgPrice != nil {
		if perKgPrice.Sign() < 0 {
			return nil, ErrInvalidRate
		}
		plant.PerKgPrice = *perKgPrice
	}

	if err := s.db.UpdatePlant(plant); err != nil {
		return nil, err
	}
	return plant, nil
}

// GinHandlers contains HTTP handlers for gas-plant endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for gas-plant endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPlantNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidRate), errors.Is(err, ErrMissingDetails):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}

type registerPlantRequest struct {
	Name       string          `json:"name" binding:"required"`
	Email      string          `json:"email" binding:"required,email"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	PerKgPrice decimal.Decimal `json:"per_kg_price"`
}

type updatePlantRequest struct {
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Address    string           `json:"address"`
	Status     string           `json:"status"`
	PerKgPrice *decimal.Decimal `json:"per_kg_price"`
}

// RegisterPlantHandler handles POST requests to register a gas plant
func (h *GinHandlers) RegisterPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerPlantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		plant := &GasPlant{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Address:    req.Address,
			PerKgPrice: req.PerKgPrice,
		}
		if err := h.service.RegisterPlant(plant); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, plant)
	}
}

// GetPlantHandler handles GET requests for a single gas plant
// URL parameter: plant_id
func (h *GinHandlers) GetPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		plant, err := h.service.GetPlant(c.Param("plant_id"))
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, plant)
	}
}

// ListPlantsHandler handles GET requests for all gas plants
func (h *GinHandlers) ListPlantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.ListPlants()
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, result)
	}
}

// UpdatePlantHandler handles PUT requests to update a gas plant's profile
func (h *GinHandlers) UpdatePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updatePlantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		plant, err := h.service.UpdatePlant(c.Param("plant_id"), req.Name, req.Phone, req.Address, req.Status, req.PerKgPrice)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, plant)
	}
}
