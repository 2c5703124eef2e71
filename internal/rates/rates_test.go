package rates

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

	"github.com/tracklet/tracklet-api/internal/plants"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&RateEntry{}, &plants.GasPlant{}))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSetRateFansOutToActivePlants(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)
	plantService := plants.NewService(db)

	active := &plants.GasPlant{Name: "Active Plant", Email: "a@example.com", PerKgPrice: d("200")}
	require.NoError(t, plantService.RegisterPlant(active))

	dormant := &plants.GasPlant{Name: "Dormant Plant", Email: "b@example.com", PerKgPrice: d("200"), Status: plants.StatusInactive}
	require.NoError(t, plantService.RegisterPlant(dormant))

	entry, err := s.SetRate(d("275.50"), "admin-1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.RateID)
	assert.Equal(t, "admin-1", entry.SetBy)

	// Only the active plant picks up the new price
	refreshed, err := plantService.GetPlant(active.PlantID)
	require.NoError(t, err)
	assert.True(t, refreshed.PerKgPrice.Equal(d("275.50")))

	unchanged, err := plantService.GetPlant(dormant.PlantID)
	require.NoError(t, err)
	assert.True(t, unchanged.PerKgPrice.Equal(d("200")))
}

func TestSetRateValidation(t *testing.T) {
	s := NewService(newTestDB(t))

	_, err := s.SetRate(decimal.Zero, "admin-1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = s.SetRate(d("-10"), "admin-1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = s.GetCurrentRate()
	assert.ErrorIs(t, err, ErrNoRateSet)
}

func TestGetCurrentRateIsLatest(t *testing.T) {
	s := NewService(newTestDB(t))

	_, err := s.SetRate(d("250"), "admin-1")
	require.NoError(t, err)
	_, err = s.SetRate(d("260"), "admin-1")
	require.NoError(t, err)

	current, err := s.GetCurrentRate()
	require.NoError(t, err)
	assert.True(t, current.Rate.Equal(d("260")))

	// History keeps every entry, newest first
	history, err := s.GetHistory(0, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Rate.Equal(d("260")))
	assert.True(t, history[1].Rate.Equal(d("250")))
}

func TestGetHistoryMonthYearFilter(t *testing.T) {
	db := newTestDB(t)
	s := NewService(db)

	entries := []RateEntry{
		{RateID: "RTE_1", Rate: d("240"), SetBy: "admin-1", Date: time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)},
		{RateID: "RTE_2", Rate: d("250"), SetBy: "admin-1", Date: time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)},
		{RateID: "RTE_3", Rate: d("260"), SetBy: "admin-1", Date: time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)},
		{RateID: "RTE_4", Rate: d("230"), SetBy: "admin-1", Date: time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)},
	}
	for i := range entries {
		require.NoError(t, db.Create(&entries[i]).Error)
	}

	march2026, err := s.GetHistory(3, 2026)
	require.NoError(t, err)
	require.Len(t, march2026, 2)
	assert.True(t, march2026[0].Rate.Equal(d("250")))
	assert.True(t, march2026[1].Rate.Equal(d("240")))

	allOf2026, err := s.GetHistory(0, 2026)
	require.NoError(t, err)
	assert.Len(t, allOf2026, 3)

	anyMarch, err := s.GetHistory(3, 0)
	require.NoError(t, err)
	assert.Len(t, anyMarch, 3)

	nothing, err := s.GetHistory(12, 2026)
	require.NoError(t, err)
	assert.Empty(t, nothing)
}
