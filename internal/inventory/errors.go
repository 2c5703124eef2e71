package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrTankNotFound          = errors.New("tank not found")
	ErrCapacityExceeded      = errors.New("exceeds tank capacity")
	ErrInsufficientAvailable = errors.New("not enough available gas")
	ErrInsufficientFrozen    = errors.New("not enough frozen gas")
	ErrTankNotEmpty          = errors.New("tank still holds stock")
	ErrUnknownPolicy         = errors.New("unknown deduction policy")
)

// InsufficientStockError is returned when the owner's active tanks cannot
// cover a requested deduction. Shortfall holds the unfulfilled remainder.
type InsufficientStockError struct {
	Shortfall decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock available, shortfall %s", e.Shortfall.String())
}
