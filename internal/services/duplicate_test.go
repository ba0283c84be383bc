package services

import (
	"context"
	"testing"
	"time"

	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDuplicateService(t *testing.T, mode string) (*DuplicateService, database.DB, repositories.Repository) {
	t.Helper()
	db := setupTestDB(t)
	repos := repositories.New(db, nil)
	return NewDuplicateService(db, repos, config.Config{DuplicateFailureMode: mode}), db, repos
}

func TestDuplicateService_CheckEquipment(t *testing.T) {
	service, db, repos := newDuplicateService(t, config.DuplicateFailOpen)
	ctx := context.Background()

	existing := &models.Equipment{Name: "Microscope", Location: "Lab A"}
	require.NoError(t, repos.Equipment.Create(ctx, db.SQL, existing))

	t.Run("same name is a duplicate with the existing data", func(t *testing.T) {
		result, err := service.CheckEquipment(ctx, "Microscope", nil)
		require.NoError(t, err)

		assert.True(t, result.IsDuplicate)
		require.NotNil(t, result.ExistingID)
		assert.Equal(t, existing.ID, *result.ExistingID)
		existingData, ok := result.ExistingData.(*models.Equipment)
		require.True(t, ok)
		assert.Equal(t, "Lab A", existingData.Location)
		assert.Equal(t, DuplicateSuggestions{CanUpdate: true, CanCreateNew: false}, result.Suggestions)
	})

	t.Run("excluding the found id is not a duplicate", func(t *testing.T) {
		first, err := service.CheckEquipment(ctx, "Microscope", nil)
		require.NoError(t, err)

		second, err := service.CheckEquipment(ctx, "Microscope", first.ExistingID)
		require.NoError(t, err)
		assert.False(t, second.IsDuplicate)
		assert.True(t, second.Suggestions.CanUpdate)
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		result, err := service.CheckEquipment(ctx, "  Microscope\t", nil)
		require.NoError(t, err)
		assert.True(t, result.IsDuplicate)
	})

	t.Run("case differences are not duplicates", func(t *testing.T) {
		result, err := service.CheckEquipment(ctx, "microscope", nil)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
		assert.Equal(t, "Equipment name is available", result.Message)
	})
}

func TestDuplicateService_CheckChemical(t *testing.T) {
	service, db, repos := newDuplicateService(t, config.DuplicateFailOpen)
	ctx := context.Background()

	require.NoError(t, repos.Chemical.Create(ctx, db.SQL, &models.Chemical{
		Name: "Ethanol", Formula: "C2H5OH", Quantity: decimal.NewFromInt(1),
	}))

	tests := []struct {
		name      string
		chemical  string
		formula   string
		duplicate bool
	}{
		{"name and formula match", "Ethanol", "C2H5OH", true},
		{"different formula", "Ethanol", "C2H6O", false},
		{"name only when formula empty", "Ethanol", "", true},
		{"different name", "Methanol", "C2H5OH", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.CheckChemical(ctx, tt.chemical, tt.formula, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.duplicate, result.IsDuplicate)
		})
	}
}

func TestDuplicateService_CheckMaintenance(t *testing.T) {
	service, db, repos := newDuplicateService(t, config.DuplicateFailOpen)
	ctx := context.Background()

	equipmentID := uuid.New()
	scheduled := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	task := &models.MaintenanceTask{
		EquipmentID:   equipmentID,
		EquipmentName: "Autoclave",
		Type:          "Calibration",
		ScheduledDate: scheduled,
	}
	require.NoError(t, repos.Maintenance.Create(ctx, db.SQL, task))

	t.Run("different time same day is a duplicate", func(t *testing.T) {
		result, err := service.CheckMaintenance(ctx, equipmentID, "Calibration", scheduled.Add(8*time.Hour), nil)
		require.NoError(t, err)
		assert.True(t, result.IsDuplicate)
		assert.Equal(t, task.ID, *result.ExistingID)
	})

	t.Run("excluded id is skipped", func(t *testing.T) {
		result, err := service.CheckMaintenance(ctx, equipmentID, "Calibration", scheduled, &task.ID)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
	})

	t.Run("different day", func(t *testing.T) {
		result, err := service.CheckMaintenance(ctx, equipmentID, "Calibration", scheduled.AddDate(0, 0, 1), nil)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
	})

	t.Run("different type", func(t *testing.T) {
		result, err := service.CheckMaintenance(ctx, equipmentID, "Cleaning", scheduled, nil)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
	})

	t.Run("different equipment", func(t *testing.T) {
		result, err := service.CheckMaintenance(ctx, uuid.New(), "Calibration", scheduled, nil)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
	})
}

func TestDuplicateService_FailureModes(t *testing.T) {
	t.Run("fail open reports not duplicate", func(t *testing.T) {
		service, db, _ := newDuplicateService(t, config.DuplicateFailOpen)
		require.NoError(t, db.Close())

		result, err := service.CheckEquipment(context.Background(), "Microscope", nil)
		require.NoError(t, err)
		assert.False(t, result.IsDuplicate)
		assert.Equal(t, "Unable to check for duplicates", result.Message)
		assert.True(t, result.Suggestions.CanCreateNew)
	})

	t.Run("fail closed surfaces the error", func(t *testing.T) {
		service, db, _ := newDuplicateService(t, config.DuplicateFailClosed)
		require.NoError(t, db.Close())

		_, err := service.CheckChemical(context.Background(), "Ethanol", "", nil)
		assert.Error(t, err)

		_, err = service.CheckMaintenance(context.Background(), uuid.New(), "Calibration", time.Now(), nil)
		assert.Error(t, err)
	})
}

// brokenLookupRepo writes a row and then fails, like a check query that
// errors part way through a transaction
type brokenLookupRepo struct {
	repositories.EquipmentRepository
}

func (r brokenLookupRepo) FindByName(ctx context.Context, tx *gorm.DB, name string) ([]*models.Equipment, error) {
	if err := tx.Create(&models.Equipment{Name: "Leftover"}).Error; err != nil {
		return nil, err
	}
	return nil, tx.Exec("SELECT * FROM missing_table").Error
}

func TestDuplicateService_FailedCheckKeepsTransactionUsable(t *testing.T) {
	db := setupTestDB(t)
	repos := repositories.New(db, nil)
	repos.Equipment = brokenLookupRepo{repos.Equipment}
	service := NewDuplicateService(db, repos, config.Config{DuplicateFailureMode: config.DuplicateFailOpen})

	err := NewTransactionService(db).Execute(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		result, err := service.CheckEquipment(ctx, "Microscope", nil)
		require.NoError(t, err)
		assert.Equal(t, "Unable to check for duplicates", result.Message)

		return repos.Equipment.Create(ctx, tx, &models.Equipment{Name: "Microscope"})
	})
	require.NoError(t, err)

	var names []string
	require.NoError(t, db.SQL.Model(&models.Equipment{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"Microscope"}, names)
}

func TestDuplicateService_CheckMultiple(t *testing.T) {
	service, db, repos := newDuplicateService(t, config.DuplicateFailOpen)
	ctx := context.Background()
	require.NoError(t, repos.Equipment.Create(ctx, db.SQL, &models.Equipment{Name: "Balance"}))

	results, err := service.CheckMultiple(ctx, []DuplicateCheckItem{
		{Kind: DuplicateKindEquipment, Name: "Balance"},
		{Kind: DuplicateKindChemical, Name: "Acetone"},
		{Kind: "robot"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].IsDuplicate)
	assert.False(t, results[1].IsDuplicate)
	assert.Equal(t, "Unknown type", results[2].Message)
	for i, result := range results {
		assert.Equal(t, i, result.ItemIndex)
	}
}

func TestDuplicateService_Import(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, strategy ImportStrategy) (ImportResult, database.DB, repositories.Repository) {
		service, db, repos := newDuplicateService(t, config.DuplicateFailOpen)
		require.NoError(t, repos.Equipment.Create(ctx, db.SQL, &models.Equipment{Name: "Microscope", Location: "Lab A", Quantity: 1}))

		result := service.Import(ctx, []ImportItem{
			{Type: models.ItemTypeEquipment, Equipment: &models.Equipment{Name: "Microscope", Location: "Lab B", Quantity: 4}},
			{Type: models.ItemTypeEquipment, Equipment: &models.Equipment{Name: "Centrifuge", Quantity: 1}},
			{Type: models.ItemTypeChemical, Chemical: &models.Chemical{Name: "Ethanol", Quantity: decimal.NewFromInt(2)}},
			{Type: models.ItemTypeChemical},
		}, strategy)
		return result, db, repos
	}

	t.Run("skip", func(t *testing.T) {
		result, db, repos := seed(t, ImportSkip)
		assert.Equal(t, 2, result.Imported)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 0, result.Updated)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 3, result.Errors[0].Index)

		found, err := repos.Equipment.FindByName(ctx, db.SQL, "Microscope")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Lab A", found[0].Location)
	})

	t.Run("update merges into existing", func(t *testing.T) {
		result, db, repos := seed(t, ImportUpdate)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 2, result.Imported)

		found, err := repos.Equipment.FindByName(ctx, db.SQL, "Microscope")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Lab B", found[0].Location)
		assert.Equal(t, 4, found[0].Quantity)
	})

	t.Run("create forces a second record", func(t *testing.T) {
		result, db, repos := seed(t, ImportCreate)
		assert.Equal(t, 3, result.Imported)

		found, err := repos.Equipment.FindByName(ctx, db.SQL, "Microscope")
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestParseResolutionAndStrategy(t *testing.T) {
	resolution, err := ParseResolution("update")
	require.NoError(t, err)
	assert.Equal(t, ResolveUpdate, resolution)

	_, err = ParseResolution("merge")
	assert.ErrorIs(t, err, ErrInvalidResolution)

	strategy, err := ParseImportStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ImportSkip, strategy)
}

func TestDuplicateError(t *testing.T) {
	err := error(&DuplicateError{Result: DuplicateResult{Message: "exists"}})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.EqualError(t, err, "exists")
}

func TestDecide(t *testing.T) {
	id := uuid.New()
	found := duplicate(id, nil, "exists")
	fresh := available("new", false)

	tests := []struct {
		name       string
		check      DuplicateResult
		resolution Resolution
		outcome    WriteOutcome
		conflict   bool
	}{
		{"new record is created", fresh, ResolveNone, OutcomeCreated, false},
		{"duplicate without resolution conflicts", found, ResolveNone, "", true},
		{"duplicate merged on update", found, ResolveUpdate, OutcomeUpdated, false},
		{"duplicate forced on create", found, ResolveCreate, OutcomeCreated, false},
		{"cancel does nothing", found, ResolveCancel, OutcomeCancelled, false},
		{"cancel without duplicate", fresh, ResolveCancel, OutcomeCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := Decide(tt.check, tt.resolution)
			if tt.conflict {
				var dupErr *DuplicateError
				require.ErrorAs(t, err, &dupErr)
				assert.Equal(t, id, *dupErr.Result.ExistingID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}
