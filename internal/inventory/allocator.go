package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeductionPolicy selects which tanks a multi-tank deduction draws from and
// in what order. Both policies are deterministic for a given tank snapshot.
type DeductionPolicy string

const (
	// PolicyGreedy drains the tank with the most available gas first.
	PolicyGreedy DeductionPolicy = "greedy"
	// PolicySequential drains tanks in name order (A before B before C),
	// used when order acceptance needs fixed draw-down semantics.
	PolicySequential DeductionPolicy = "sequential"
)

// sortTanks orders the snapshot according to the policy. Ties are broken by
// row id, which follows insertion order, so replays are reproducible.
func sortTanks(tanks []Tank, policy DeductionPolicy) error {
	switch policy {
	case PolicyGreedy:
		sort.SliceStable(tanks, func(i, j int) bool {
			if c := tanks[i].Available.Cmp(tanks[j].Available); c != 0 {
				return c > 0
			}
			return tanks[i].ID < tanks[j].ID
		})
	case PolicySequential:
		sort.SliceStable(tanks, func(i, j int) bool {
			if tanks[i].Name != tanks[j].Name {
				return tanks[i].Name < tanks[j].Name
			}
			return tanks[i].ID < tanks[j].ID
		})
	default:
		return ErrUnknownPolicy
	}
	return nil
}

// planDeduction walks the sorted snapshot and decides how much to draw from
// each tank. It performs no writes; if the tanks cannot cover the amount the
// caller gets an InsufficientStockError carrying the shortfall and nothing
// is committed.
func planDeduction(tanks []Tank, amount decimal.Decimal, policy DeductionPolicy) ([]TankDeduction, error) {
	if err := sortTanks(tanks, policy); err != nil {
		return nil, err
	}

	remaining := amount
	plan := make([]TankDeduction, 0, len(tanks))

	for i := range tanks {
		if remaining.Sign() <= 0 {
			break
		}
		draw := decimal.Min(tanks[i].Available, remaining)
		if draw.Sign() <= 0 {
			continue
		}
		plan = append(plan, TankDeduction{
			TankID:   tanks[i].TankID,
			TankName: tanks[i].Name,
			Amount:   draw,
		})
		remaining = remaining.Sub(draw)
	}

	if remaining.Sign() > 0 {
		return nil, &InsufficientStockError{Shortfall: remaining}
	}
	return plan, nil
}

// DeductStock removes amount tons from the owner's active tanks according to
// the given policy. The whole walk is one storage transaction: every touched
// tank and its ledger entry commit together, or the deduction fails with no
// tank mutated. Ledger entries are written in the order tanks were drawn
// from.
func (s *Service) DeductStock(ownerID string, amount, rate decimal.Decimal, orderID string, policy DeductionPolicy) ([]TankDeduction, error) {
	logger := log.With().
		Str("owner_id", ownerID).
		Str("policy", string(policy)).
		Str("service", "inventory").
		Logger()

	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.lockOwner(ownerID)
	defer unlock()

	var plan []TankDeduction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tanks, err := getActiveTanksForUpdate(tx, ownerID)
		if err != nil {
			return err
		}

		plan, err = planDeduction(tanks, amount, policy)
		if err != nil {
			return err
		}

		byID := make(map[string]*Tank, len(tanks))
		for i := range tanks {
			byID[tanks[i].TankID] = &tanks[i]
		}

		now := time.Now()
		for _, deduction := range plan {
			tank := byID[deduction.TankID]
			tank.Available = tank.Available.Sub(deduction.Amount)
			tank.LastRecordedDate = now
			if err := tx.Save(tank).Error; err != nil {
				return err
			}

			notes := "Stock deducted"
			if orderID != "" {
				notes = fmt.Sprintf("Stock deducted for order %s", orderID)
			}
			if policy == PolicySequential {
				notes += " (sequential)"
			}

			record := StockTransaction{
				TransactionID: "TXN_" + uuid.New().String(),
				TankID:        tank.TankID,
				TankName:      tank.Name,
				Type:          TxTypeDeduct,
				Amount:        deduction.Amount,
				Rate:          rate,
				OrderID:       orderID,
				OwnerID:       ownerID,
				Notes:         notes,
				Date:          now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if shortfall, ok := err.(*InsufficientStockError); ok {
			logger.Warn().
				Str("requested", amount.String()).
				Str("shortfall", shortfall.Shortfall.String()).
				Msg("deduction rejected, not enough stock")
		}
		return nil, err
	}

	logger.Info().
		Str("amount", amount.String()).
		Str("order_id", orderID).
		Int("tanks_drawn", len(plan)).
		Msg("stock deducted")

	return plan, nil
}
