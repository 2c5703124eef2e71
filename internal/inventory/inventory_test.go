package inventory

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Tank{}, &StockTransaction{}))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createTestTank(t *testing.T, s *Service, owner, name string, capacity, available string) *Tank {
	t.Helper()

	tank := &Tank{
		Name:          name,
		TotalCapacity: d(capacity),
		Available:     d(available),
		OwnerID:       owner,
	}
	require.NoError(t, s.CreateTank(tank))
	return tank
}

func ledgerFor(t *testing.T, s *Service, owner string) []StockTransaction {
	t.Helper()

	transactions, err := s.ListTransactions(owner, TransactionFilter{})
	require.NoError(t, err)
	return transactions
}

func TestCreateTank(t *testing.T) {
	s := NewService(newTestDB(t))

	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "20")
	assert.NotEmpty(t, tank.TankID)
	assert.Equal(t, StatusActive, tank.Status)
	assert.True(t, tank.FreezeGas.IsZero())

	fetched, err := s.GetTank(tank.TankID)
	require.NoError(t, err)
	assert.True(t, fetched.Available.Equal(d("20")))
}

func TestCreateTankRejectsBadCapacity(t *testing.T) {
	s := NewService(newTestDB(t))

	err := s.CreateTank(&Tank{Name: "Tank A", TotalCapacity: d("0"), OwnerID: "owner-1"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = s.CreateTank(&Tank{Name: "Tank A", TotalCapacity: d("10"), Available: d("11"), OwnerID: "owner-1"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAddStock(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "10")

	updated, err := s.AddStock(tank.TankID, d("25.5"), d("260"))
	require.NoError(t, err)
	assert.True(t, updated.Available.Equal(d("35.5")))

	ledger := ledgerFor(t, s, "owner-1")
	require.Len(t, ledger, 1)
	assert.Equal(t, TxTypeAdd, ledger[0].Type)
	assert.Equal(t, tank.TankID, ledger[0].TankID)
	assert.Equal(t, "Tank A", ledger[0].TankName)
	assert.True(t, ledger[0].Amount.Equal(d("25.5")))
	assert.True(t, ledger[0].Rate.Equal(d("260")))
}

func TestAddStockCapacityExceeded(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "90")

	_, err := s.AddStock(tank.TankID, d("10.00000001"), decimal.Zero)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// Neither the tank nor the ledger may change on failure
	fetched, err := s.GetTank(tank.TankID)
	require.NoError(t, err)
	assert.True(t, fetched.Available.Equal(d("90")))
	assert.Empty(t, ledgerFor(t, s, "owner-1"))

	// Filling exactly to capacity is allowed
	updated, err := s.AddStock(tank.TankID, d("10"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, updated.Available.Equal(d("100")))
}

func TestAddStockUnknownTank(t *testing.T) {
	s := NewService(newTestDB(t))

	_, err := s.AddStock("TNK_missing", d("1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrTankNotFound)
}

func TestFreezeAndUnfreezeRoundTrip(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "60")

	frozen, err := s.FreezeStock(tank.TankID, d("12.5"))
	require.NoError(t, err)
	assert.True(t, frozen.Available.Equal(d("47.5")))
	assert.True(t, frozen.FreezeGas.Equal(d("12.5")))

	thawed, err := s.UnfreezeStock(tank.TankID, d("12.5"))
	require.NoError(t, err)
	assert.True(t, thawed.Available.Equal(d("60")))
	assert.True(t, thawed.FreezeGas.IsZero())

	ledger := ledgerFor(t, s, "owner-1")
	require.Len(t, ledger, 2)
}

func TestFreezeInsufficientAvailable(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "5")

	_, err := s.FreezeStock(tank.TankID, d("5.01"))
	assert.ErrorIs(t, err, ErrInsufficientAvailable)
	assert.Empty(t, ledgerFor(t, s, "owner-1"))
}

func TestUnfreezeInsufficientFrozen(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "50")

	_, err := s.FreezeStock(tank.TankID, d("10"))
	require.NoError(t, err)

	_, err = s.UnfreezeStock(tank.TankID, d("10.5"))
	assert.ErrorIs(t, err, ErrInsufficientFrozen)
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "50")

	for _, amount := range []decimal.Decimal{decimal.Zero, d("-3")} {
		_, err := s.AddStock(tank.TankID, amount, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = s.FreezeStock(tank.TankID, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = s.UnfreezeStock(tank.TankID, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = s.DeductStock("owner-1", amount, decimal.Zero, "", PolicyGreedy)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}

	// No tank mutation and no ledger entries from any of the rejections
	fetched, err := s.GetTank(tank.TankID)
	require.NoError(t, err)
	assert.True(t, fetched.Available.Equal(d("50")))
	assert.True(t, fetched.FreezeGas.IsZero())
	assert.Empty(t, ledgerFor(t, s, "owner-1"))
}

// Conservation: available+frozen never exceeds capacity and both pools stay
// non-negative across a mixed sequence of operations, with one ledger entry
// per mutation.
func TestConservationAcrossOperations(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "0")

	steps := []struct {
		op     func(amount decimal.Decimal) (*Tank, error)
		amount string
	}{
		{func(a decimal.Decimal) (*Tank, error) { return s.AddStock(tank.TankID, a, decimal.Zero) }, "40"},
		{func(a decimal.Decimal) (*Tank, error) { return s.FreezeStock(tank.TankID, a) }, "15"},
		{func(a decimal.Decimal) (*Tank, error) { return s.AddStock(tank.TankID, a, decimal.Zero) }, "60"},
		{func(a decimal.Decimal) (*Tank, error) { return s.UnfreezeStock(tank.TankID, a) }, "10"},
		{func(a decimal.Decimal) (*Tank, error) { return s.FreezeStock(tank.TankID, a) }, "30"},
	}

	mutations := 0
	for _, step := range steps {
		updated, err := step.op(d(step.amount))
		require.NoError(t, err)
		mutations++

		assert.True(t, updated.Available.Sign() >= 0)
		assert.True(t, updated.FreezeGas.Sign() >= 0)
		held := updated.Available.Add(updated.FreezeGas)
		assert.True(t, held.Cmp(updated.TotalCapacity) <= 0,
			"available+frozen %s exceeds capacity %s", held, updated.TotalCapacity)
	}

	assert.Len(t, ledgerFor(t, s, "owner-1"), mutations)
}

func TestUpdateTank(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "40")

	smaller := d("30")
	_, err := s.UpdateTank(tank.TankID, "", "", "", &smaller)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	larger := d("200")
	updated, err := s.UpdateTank(tank.TankID, "Tank A2", "Yard 2", StatusMaintenance, &larger)
	require.NoError(t, err)
	assert.Equal(t, "Tank A2", updated.Name)
	assert.Equal(t, StatusMaintenance, updated.Status)
	assert.True(t, updated.TotalCapacity.Equal(d("200")))
}

func TestDeleteTank(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "10")

	assert.ErrorIs(t, s.DeleteTank(tank.TankID), ErrTankNotEmpty)

	_, err := s.DeductStock("owner-1", d("10"), decimal.Zero, "", PolicyGreedy)
	require.NoError(t, err)
	require.NoError(t, s.DeleteTank(tank.TankID))

	_, err = s.GetTank(tank.TankID)
	assert.ErrorIs(t, err, ErrTankNotFound)
}

func TestListTransactionsFilters(t *testing.T) {
	s := NewService(newTestDB(t))
	tank := createTestTank(t, s, "owner-1", "Tank A", "100", "0")

	_, err := s.AddStock(tank.TankID, d("30"), d("260"))
	require.NoError(t, err)
	_, err = s.FreezeStock(tank.TankID, d("5"))
	require.NoError(t, err)
	_, err = s.DeductStock("owner-1", d("10"), d("260"), "ORD_1", PolicyGreedy)
	require.NoError(t, err)

	all := ledgerFor(t, s, "owner-1")
	assert.Len(t, all, 3)

	adds, err := s.ListTransactions("owner-1", TransactionFilter{Type: TxTypeAdd})
	require.NoError(t, err)
	require.Len(t, adds, 1)
	assert.Equal(t, TxTypeAdd, adds[0].Type)

	// A window in the past excludes everything written just now
	start := time.Now().Add(-2 * time.Hour)
	end := time.Now().Add(-1 * time.Hour)
	none, err := s.ListTransactions("owner-1", TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Empty(t, none)

	// An inclusive window around now captures all three
	until := time.Now().Add(time.Hour)
	windowed, err := s.ListTransactions("owner-1", TransactionFilter{StartDate: &start, EndDate: &until})
	require.NoError(t, err)
	assert.Len(t, windowed, 3)
}

func TestGetStockStats(t *testing.T) {
	s := NewService(newTestDB(t))
	tankA := createTestTank(t, s, "owner-1", "Tank A", "100", "0")
	createTestTank(t, s, "owner-1", "Tank B", "50", "20")

	_, err := s.AddStock(tankA.TankID, d("40"), d("260"))
	require.NoError(t, err)
	_, err = s.FreezeStock(tankA.TankID, d("10"))
	require.NoError(t, err)
	_, err = s.DeductStock("owner-1", d("2"), d("250"), "ORD_1", PolicySequential)
	require.NoError(t, err)

	stats, err := s.GetStockStats("owner-1")
	require.NoError(t, err)

	assert.True(t, stats.TotalCapacity.Equal(d("150")))
	assert.True(t, stats.TotalAvailable.Equal(d("48"))) // 40 - 10 frozen - 2 deducted + 20
	assert.True(t, stats.TotalFrozen.Equal(d("10")))
	assert.Equal(t, 2, stats.TotalTanks)
	assert.Equal(t, 2, stats.ActiveTanks)
	assert.True(t, stats.TodayAdded.Equal(d("40")))
	assert.True(t, stats.TodayDeducted.Equal(d("2")))
	// 2 tons * 1000 kg * 250/kg
	assert.True(t, stats.TodaySales.Equal(d("500000")), "got %s", stats.TodaySales)

	// Recomputation without intervening mutations is stable
	again, err := s.GetStockStats("owner-1")
	require.NoError(t, err)
	assert.True(t, stats.TodaySales.Equal(again.TodaySales))
	assert.True(t, stats.TotalAvailable.Equal(again.TotalAvailable))
	assert.Equal(t, stats.ActiveTanks, again.ActiveTanks)
}

func TestStatsForOwnerWithoutTanks(t *testing.T) {
	s := NewService(newTestDB(t))

	stats, err := s.GetStockStats("owner-unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTanks)
	assert.True(t, stats.TotalCapacity.IsZero())
	assert.True(t, stats.TodaySales.IsZero())
}
