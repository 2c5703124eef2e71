package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tracklet/tracklet-api/internal/inventory"
	"github.com/tracklet/tracklet-api/internal/plants"
)

// Monitor periodically sweeps every active gas plant's stock and writes a
// low-stock notification when the available total drops below the threshold.
// Each plant is warned at most once per notice window.
type Monitor struct {
	service      *Service
	plants       *plants.Service
	inventory    *inventory.Service
	threshold    decimal.Decimal
	sweepDelay   time.Duration
	noticeWindow time.Duration
}

func NewMonitor(service *Service, plantService *plants.Service, inventoryService *inventory.Service, threshold decimal.Decimal) *Monitor {
	return &Monitor{
		service:      service,
		plants:       plantService,
		inventory:    inventoryService,
		threshold:    threshold,
		sweepDelay:   5 * time.Minute,
		noticeWindow: 24 * time.Hour,
	}
}

// Start begins the low-stock sweep loop
func (m *Monitor) Start(ctx context.Context) {
	logger := log.With().Str("component", "low_stock_monitor").Logger()
	logger.Info().Str("threshold", m.threshold.String()).Msg("starting low stock monitor")

	ticker := time.NewTicker(m.sweepDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down low stock monitor")
			return
		case <-ticker.C:
			if err := m.sweep(); err != nil {
				logger.Error().Err(err).Msg("low stock sweep failed")
			}
		}
	}
}

func (m *Monitor) sweep() error {
	logger := log.With().Str("component", "low_stock_monitor").Logger()

	allPlants, err := m.plants.ListPlants()
	if err != nil {
		return err
	}

	for _, plant := range allPlants {
		if plant.Status != plants.StatusActive {
			continue
		}

		stats, err := m.inventory.GetStockStats(plant.PlantID)
		if err != nil {
			logger.Error().Err(err).Str("plant_id", plant.PlantID).Msg("failed to fetch stock stats")
			continue
		}
		if stats.TotalAvailable.Cmp(m.threshold) >= 0 {
			continue
		}

		since := time.Now().Add(-m.noticeWindow)
		alreadyNotified, err := m.service.GetDB().HasRecentLowStockNotice(plant.PlantID, since)
		if err != nil {
			logger.Error().Err(err).Str("plant_id", plant.PlantID).Msg("failed to check notice history")
			continue
		}
		if alreadyNotified {
			continue
		}

		message := fmt.Sprintf("Available stock is down to %s tons, below the %s ton threshold",
			stats.TotalAvailable.String(), m.threshold.String())
		if _, err := m.service.Notify(plant.PlantID, TypeLowStock, "Low stock warning", message, ""); err != nil {
			logger.Error().Err(err).Str("plant_id", plant.PlantID).Msg("failed to create low stock notification")
			continue
		}

		logger.Info().
			Str("plant_id", plant.PlantID).
			Str("available", stats.TotalAvailable.String()).
			Msg("low stock notification created")
	}

	return nil
}
