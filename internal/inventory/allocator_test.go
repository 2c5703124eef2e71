package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func availableOf(t *testing.T, s *Service, tankID string) decimal.Decimal {
	t.Helper()

	tank, err := s.GetTank(tankID)
	require.NoError(t, err)
	return tank.Available
}

func planTotal(plan []TankDeduction) decimal.Decimal {
	total := decimal.Zero
	for _, deduction := range plan {
		total = total.Add(deduction.Amount)
	}
	return total
}

func TestDeductStockGreedy(t *testing.T) {
	s := NewService(newTestDB(t))
	big := createTestTank(t, s, "owner-1", "Tank Big", "100", "50")
	mid := createTestTank(t, s, "owner-1", "Tank Mid", "100", "30")
	small := createTestTank(t, s, "owner-1", "Tank Small", "100", "20")

	plan, err := s.DeductStock("owner-1", d("70"), d("260"), "ORD_1", PolicyGreedy)
	require.NoError(t, err)

	// Fullest first: 50 from Big, then 20 of Mid's 30. Small untouched.
	require.Len(t, plan, 2)
	assert.Equal(t, big.TankID, plan[0].TankID)
	assert.True(t, plan[0].Amount.Equal(d("50")))
	assert.Equal(t, mid.TankID, plan[1].TankID)
	assert.True(t, plan[1].Amount.Equal(d("20")))
	assert.True(t, planTotal(plan).Equal(d("70")))

	assert.True(t, availableOf(t, s, big.TankID).IsZero())
	assert.True(t, availableOf(t, s, mid.TankID).Equal(d("10")))
	assert.True(t, availableOf(t, s, small.TankID).Equal(d("20")))

	// One ledger entry per drawn tank, correlated to the order
	ledger := ledgerFor(t, s, "owner-1")
	require.Len(t, ledger, 2)
	for _, txn := range ledger {
		assert.Equal(t, TxTypeDeduct, txn.Type)
		assert.Equal(t, "ORD_1", txn.OrderID)
	}
}

func TestDeductStockSequential(t *testing.T) {
	s := NewService(newTestDB(t))
	// Created out of name order on purpose
	c := createTestTank(t, s, "owner-1", "Tank C", "100", "10")
	a := createTestTank(t, s, "owner-1", "Tank A", "100", "10")
	b := createTestTank(t, s, "owner-1", "Tank B", "100", "10")

	plan, err := s.DeductStock("owner-1", d("15"), decimal.Zero, "", PolicySequential)
	require.NoError(t, err)

	// Name order: all of A, then 5 from B, C untouched
	require.Len(t, plan, 2)
	assert.Equal(t, a.TankID, plan[0].TankID)
	assert.True(t, plan[0].Amount.Equal(d("10")))
	assert.Equal(t, b.TankID, plan[1].TankID)
	assert.True(t, plan[1].Amount.Equal(d("5")))

	assert.True(t, availableOf(t, s, a.TankID).IsZero())
	assert.True(t, availableOf(t, s, b.TankID).Equal(d("5")))
	assert.True(t, availableOf(t, s, c.TankID).Equal(d("10")))
}

func TestDeductStockShortfallIsAtomic(t *testing.T) {
	s := NewService(newTestDB(t))
	a := createTestTank(t, s, "owner-1", "Tank A", "100", "25")
	b := createTestTank(t, s, "owner-1", "Tank B", "100", "15")

	_, err := s.DeductStock("owner-1", d("50"), decimal.Zero, "", PolicyGreedy)
	require.Error(t, err)

	var shortfall *InsufficientStockError
	require.ErrorAs(t, err, &shortfall)
	assert.True(t, shortfall.Shortfall.Equal(d("10")), "got shortfall %s", shortfall.Shortfall)

	// Nothing was drawn from any tank and no ledger entry exists
	assert.True(t, availableOf(t, s, a.TankID).Equal(d("25")))
	assert.True(t, availableOf(t, s, b.TankID).Equal(d("15")))
	assert.Empty(t, ledgerFor(t, s, "owner-1"))
}

func TestDeductStockSkipsFrozenAndInactive(t *testing.T) {
	s := NewService(newTestDB(t))
	a := createTestTank(t, s, "owner-1", "Tank A", "100", "30")
	b := createTestTank(t, s, "owner-1", "Tank B", "100", "30")

	// Freeze most of A and take B out of service; only A's remaining
	// available pool may be drawn from.
	_, err := s.FreezeStock(a.TankID, d("25"))
	require.NoError(t, err)
	_, err = s.UpdateTank(b.TankID, "", "", StatusMaintenance, nil)
	require.NoError(t, err)

	_, err = s.DeductStock("owner-1", d("10"), decimal.Zero, "", PolicyGreedy)
	var shortfall *InsufficientStockError
	require.ErrorAs(t, err, &shortfall)
	assert.True(t, shortfall.Shortfall.Equal(d("5")))

	plan, err := s.DeductStock("owner-1", d("5"), decimal.Zero, "", PolicyGreedy)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, a.TankID, plan[0].TankID)

	frozen, err := s.GetTank(a.TankID)
	require.NoError(t, err)
	assert.True(t, frozen.FreezeGas.Equal(d("25")))
	assert.True(t, availableOf(t, s, b.TankID).Equal(d("30")))
}

func TestDeductStockExactDrain(t *testing.T) {
	s := NewService(newTestDB(t))
	a := createTestTank(t, s, "owner-1", "Tank A", "100", "12.25")
	b := createTestTank(t, s, "owner-1", "Tank B", "100", "7.75")

	plan, err := s.DeductStock("owner-1", d("20"), decimal.Zero, "", PolicyGreedy)
	require.NoError(t, err)
	assert.True(t, planTotal(plan).Equal(d("20")))

	assert.True(t, availableOf(t, s, a.TankID).IsZero())
	assert.True(t, availableOf(t, s, b.TankID).IsZero())

	// Owner is now empty; the next deduction reports the full amount short
	_, err = s.DeductStock("owner-1", d("1"), decimal.Zero, "", PolicyGreedy)
	var shortfall *InsufficientStockError
	require.ErrorAs(t, err, &shortfall)
	assert.True(t, shortfall.Shortfall.Equal(d("1")))
}

func TestDeductStockUnknownPolicy(t *testing.T) {
	s := NewService(newTestDB(t))
	createTestTank(t, s, "owner-1", "Tank A", "100", "50")

	_, err := s.DeductStock("owner-1", d("10"), decimal.Zero, "", DeductionPolicy("round-robin"))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Empty(t, ledgerFor(t, s, "owner-1"))
}

func TestDeductStockIsolatedPerOwner(t *testing.T) {
	s := NewService(newTestDB(t))
	mine := createTestTank(t, s, "owner-1", "Tank A", "100", "10")
	theirs := createTestTank(t, s, "owner-2", "Tank A", "100", "90")

	// owner-1 cannot cover 20 even though owner-2 has plenty
	_, err := s.DeductStock("owner-1", d("20"), decimal.Zero, "", PolicyGreedy)
	var shortfall *InsufficientStockError
	require.ErrorAs(t, err, &shortfall)
	assert.True(t, shortfall.Shortfall.Equal(d("10")))

	assert.True(t, availableOf(t, s, mine.TankID).Equal(d("10")))
	assert.True(t, availableOf(t, s, theirs.TankID).Equal(d("90")))
}

func TestPlanDeductionDeterministicTieBreak(t *testing.T) {
	tanks := []Tank{
		{TankID: "TNK_2", Name: "Tank Twin", Available: d("30")},
		{TankID: "TNK_1", Name: "Tank Twin", Available: d("30")},
	}
	tanks[0].ID = 2
	tanks[1].ID = 1

	for _, policy := range []DeductionPolicy{PolicyGreedy, PolicySequential} {
		snapshot := make([]Tank, len(tanks))
		copy(snapshot, tanks)

		plan, err := planDeduction(snapshot, d("40"), policy)
		require.NoError(t, err)
		// Equal availability and equal names: lower row id drains first
		require.Len(t, plan, 2)
		assert.Equal(t, "TNK_1", plan[0].TankID, "policy %s", policy)
		assert.True(t, plan[0].Amount.Equal(d("30")))
		assert.Equal(t, "TNK_2", plan[1].TankID)
		assert.True(t, plan[1].Amount.Equal(d("10")))
	}
}
