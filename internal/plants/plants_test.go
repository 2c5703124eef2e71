package plants

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GasPlant{}))
	return NewService(db)
}

func TestRegisterPlant(t *testing.T) {
	s := newTestService(t)

	plant := &GasPlant{Name: "Northside Gas", Email: "ops@northside.example", PerKgPrice: decimal.NewFromInt(250)}
	require.NoError(t, s.RegisterPlant(plant))
	assert.NotEmpty(t, plant.PlantID)
	assert.Equal(t, StatusActive, plant.Status)

	fetched, err := s.GetPlant(plant.PlantID)
	require.NoError(t, err)
	assert.Equal(t, "Northside Gas", fetched.Name)
}

func TestRegisterPlantValidation(t *testing.T) {
	s := newTestService(t)

	err := s.RegisterPlant(&GasPlant{Email: "ops@northside.example"})
	assert.ErrorIs(t, err, ErrMissingDetails)

	err = s.RegisterPlant(&GasPlant{Name: "Northside Gas", Email: "ops@northside.example", PerKgPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidRate)

	require.NoError(t, s.RegisterPlant(&GasPlant{Name: "Northside Gas", Email: "ops@northside.example"}))
	err = s.RegisterPlant(&GasPlant{Name: "Copycat Gas", Email: "ops@northside.example"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdatePlant(t *testing.T) {
	s := newTestService(t)

	plant := &GasPlant{Name: "Northside Gas", Email: "ops@northside.example"}
	require.NoError(t, s.RegisterPlant(plant))

	negative := decimal.NewFromInt(-5)
	_, err := s.UpdatePlant(plant.PlantID, "", "", "", "", &negative)
	assert.ErrorIs(t, err, ErrInvalidRate)

	price := decimal.RequireFromString("260.25")
	updated, err := s.UpdatePlant(plant.PlantID, "Northside Gas Co", "555-0101", "", StatusInactive, &price)
	require.NoError(t, err)
	assert.Equal(t, "Northside Gas Co", updated.Name)
	assert.Equal(t, StatusInactive, updated.Status)
	assert.True(t, updated.PerKgPrice.Equal(price))

	_, err = s.GetPlant("PLT_missing")
	assert.ErrorIs(t, err, ErrPlantNotFound)
}
