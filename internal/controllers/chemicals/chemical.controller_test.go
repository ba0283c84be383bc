package chemicalController

import (
	"context"
	"testing"
	"time"

	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setupController(t *testing.T) *ChemicalController {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.MigrateModels())
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		DuplicateFailureMode: config.DuplicateFailOpen,
		LowStockThreshold:    1,
		ExpiryWindowDays:     30,
	}
	repos := repositories.New(db, nil)
	controller := New(repos, services.New(db, cfg, repos), cfg, db).(*ChemicalController)
	controller.now = func() time.Time { return fixedNow }
	return controller
}

func chemical(name, formula string, quantity string) *CreateChemicalRequest {
	return &CreateChemicalRequest{ChemicalRequest: ChemicalRequest{
		Name:     name,
		Formula:  formula,
		Quantity: decimal.RequireFromString(quantity),
		Unit:     "L",
	}}
}

func TestChemicalController_CreateGuardsDuplicates(t *testing.T) {
	controller := setupController(t)
	ctx := context.Background()

	first, err := controller.Create(ctx, chemical("Ethanol", "C2H6O", "2"))
	require.NoError(t, err)
	assert.Equal(t, models.HazardLow, first.Chemical.HazardLevel)

	t.Run("same name and formula conflicts", func(t *testing.T) {
		_, err := controller.Create(ctx, chemical("Ethanol", "C2H6O", "1"))
		assert.ErrorIs(t, err, services.ErrDuplicate)
	})

	t.Run("same name with a different formula is new", func(t *testing.T) {
		result, err := controller.Create(ctx, chemical("Ethanol", "C2H5OH", "1"))
		require.NoError(t, err)
		assert.Equal(t, services.OutcomeCreated, result.Outcome)
	})

	t.Run("update merges the quantity", func(t *testing.T) {
		request := chemical("Ethanol", "C2H6O", "7.5")
		request.Resolution = services.ResolveUpdate

		result, err := controller.Create(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, first.Chemical.ID, result.Chemical.ID)
		assert.True(t, decimal.RequireFromString("7.5").Equal(result.Chemical.Quantity))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := controller.Create(ctx, chemical("Acid", "", "-1"))
		assert.ErrorIs(t, err, models.ErrNegativeQuantity)

		request := chemical("Acid", "", "1")
		request.HazardLevel = "Extreme"
		_, err = controller.Create(ctx, request)
		assert.ErrorIs(t, err, models.ErrInvalidHazardLevel)
	})
}

func TestChemicalController_UpdateChecksNameAndFormula(t *testing.T) {
	controller := setupController(t)
	ctx := context.Background()

	ethanol, err := controller.Create(ctx, chemical("Ethanol", "C2H6O", "2"))
	require.NoError(t, err)
	methanol, err := controller.Create(ctx, chemical("Methanol", "CH4O", "2"))
	require.NoError(t, err)

	name := "Ethanol"
	_, err = controller.Update(ctx, methanol.Chemical.ID, &UpdateChemicalRequest{Name: &name})
	assert.NoError(t, err, "formula still differs")

	formula := "C2H6O"
	_, err = controller.Update(ctx, methanol.Chemical.ID, &UpdateChemicalRequest{Formula: &formula})
	assert.ErrorIs(t, err, services.ErrDuplicate)

	location := "Cabinet 3"
	updated, err := controller.Update(ctx, ethanol.Chemical.ID, &UpdateChemicalRequest{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Cabinet 3", updated.Location)
}

func TestChemicalController_StockAndExpiry(t *testing.T) {
	controller := setupController(t)
	ctx := context.Background()

	soon := fixedNow.AddDate(0, 0, 12)
	later := fixedNow.AddDate(0, 0, 120)

	low := chemical("Acetone", "C3H6O", "0.25")
	low.ExpiryDate = &soon
	_, err := controller.Create(ctx, low)
	require.NoError(t, err)

	plenty := chemical("Salt", "NaCl", "10")
	plenty.ExpiryDate = &later
	salt, err := controller.Create(ctx, plenty)
	require.NoError(t, err)

	lowStock, err := controller.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, lowStock, 1)
	assert.Equal(t, "Acetone", lowStock[0].Name)

	expiring, err := controller.Expiring(ctx)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "Acetone", expiring[0].Name)

	updated, err := controller.SetQuantity(ctx, salt.Chemical.ID, &QuantityRequest{Quantity: decimal.NewFromFloat(0.5)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(0.5).Equal(updated.Quantity))

	_, err = controller.SetQuantity(ctx, salt.Chemical.ID, &QuantityRequest{Quantity: decimal.NewFromInt(-3)})
	assert.ErrorIs(t, err, models.ErrNegativeQuantity)

	lowStock, err = controller.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, lowStock, 2)
}

func TestChemicalController_Search(t *testing.T) {
	controller := setupController(t)
	ctx := context.Background()

	for _, request := range []*CreateChemicalRequest{
		chemical("Sodium Chloride", "NaCl", "1"),
		chemical("Sodium Hydroxide", "NaOH", "1"),
		chemical("Ethanol", "C2H6O", "1"),
	} {
		_, err := controller.Create(ctx, request)
		require.NoError(t, err)
	}

	found, err := controller.List(ctx, repositories.ChemicalFilter{}, "sodium")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = controller.List(ctx, repositories.ChemicalFilter{}, "c2h6")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ethanol", found[0].Name)

	_, err = controller.List(ctx, repositories.ChemicalFilter{HazardLevel: "Extreme"}, "")
	assert.ErrorIs(t, err, models.ErrInvalidHazardLevel)

	result, err := controller.Import(ctx, &ImportRequest{
		Items:       []ChemicalRequest{{Name: "Ethanol", Formula: "C2H6O", Quantity: decimal.NewFromInt(9)}},
		OnDuplicate: string(services.ImportUpdate),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
}
