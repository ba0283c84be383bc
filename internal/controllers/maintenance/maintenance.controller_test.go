package maintenanceController

import (
	"context"
	"testing"
	"time"

	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)

func setupController(t *testing.T) (*MaintenanceController, *models.Equipment) {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.MigrateModels())
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{DuplicateFailureMode: config.DuplicateFailOpen}
	repos := repositories.New(db, nil)
	controller := New(repos, services.New(db, cfg, repos), cfg, db).(*MaintenanceController)
	controller.now = func() time.Time { return fixedNow }

	equipment := &models.Equipment{Name: "Spectrometer"}
	require.NoError(t, repos.Equipment.Create(context.Background(), db.SQL, equipment))
	return controller, equipment
}

func calibration(equipmentID uuid.UUID, at time.Time) *CreateMaintenanceRequest {
	return &CreateMaintenanceRequest{
		EquipmentID:   equipmentID,
		Type:          "Calibration",
		ScheduledDate: at,
	}
}

func TestMaintenanceController_Create(t *testing.T) {
	controller, equipment := setupController(t)
	ctx := context.Background()
	morning := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	first, err := controller.Create(ctx, calibration(equipment.ID, morning))
	require.NoError(t, err)
	assert.Equal(t, "Spectrometer", first.Task.EquipmentName)
	assert.Equal(t, models.MaintenanceScheduled, first.Task.Status)

	t.Run("same day at another time conflicts", func(t *testing.T) {
		_, err := controller.Create(ctx, calibration(equipment.ID, morning.Add(9*time.Hour)))
		assert.ErrorIs(t, err, services.ErrDuplicate)
	})

	t.Run("update merges into the scheduled task", func(t *testing.T) {
		request := calibration(equipment.ID, morning.Add(2*time.Hour))
		request.AssignedTo = "Dana"
		request.Resolution = services.ResolveUpdate

		result, err := controller.Create(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, first.Task.ID, result.Task.ID)
		assert.Equal(t, "Dana", result.Task.AssignedTo)
	})

	t.Run("next day is new", func(t *testing.T) {
		result, err := controller.Create(ctx, calibration(equipment.ID, morning.AddDate(0, 0, 1)))
		require.NoError(t, err)
		assert.Equal(t, services.OutcomeCreated, result.Outcome)
	})

	t.Run("unknown equipment", func(t *testing.T) {
		_, err := controller.Create(ctx, calibration(uuid.New(), morning))
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("invalid priority", func(t *testing.T) {
		request := calibration(equipment.ID, morning.AddDate(0, 1, 0))
		request.Priority = "Urgent"
		_, err := controller.Create(ctx, request)
		assert.ErrorIs(t, err, models.ErrInvalidPriority)
	})
}

func TestMaintenanceController_CompleteStampsEquipment(t *testing.T) {
	controller, equipment := setupController(t)
	ctx := context.Background()

	created, err := controller.Create(ctx, calibration(equipment.ID, fixedNow.AddDate(0, 0, -2)))
	require.NoError(t, err)

	overdue, err := controller.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	completed := models.MaintenanceCompleted
	cost := decimal.RequireFromString("75.25")
	task, err := controller.Update(ctx, created.Task.ID, &UpdateMaintenanceRequest{Status: &completed, Cost: &cost})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedDate)
	assert.True(t, fixedNow.Equal(*task.CompletedDate))
	assert.True(t, cost.Equal(*task.Cost))

	reloaded, err := controller.equipmentRepo.GetByID(ctx, controller.db.SQL, equipment.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastMaintenance)
	assert.True(t, fixedNow.Equal(*reloaded.LastMaintenance))

	overdue, err = controller.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestMaintenanceController_UpdateAndDuplicates(t *testing.T) {
	controller, equipment := setupController(t)
	ctx := context.Background()
	day := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	first, err := controller.Create(ctx, calibration(equipment.ID, day))
	require.NoError(t, err)
	second, err := controller.Create(ctx, calibration(equipment.ID, day.AddDate(0, 0, 7)))
	require.NoError(t, err)

	moved := day.Add(3 * time.Hour)
	_, err = controller.Update(ctx, second.Task.ID, &UpdateMaintenanceRequest{ScheduledDate: &moved})
	assert.ErrorIs(t, err, services.ErrDuplicate)

	_, err = controller.Update(ctx, first.Task.ID, &UpdateMaintenanceRequest{ScheduledDate: &moved})
	assert.NoError(t, err, "a task never collides with itself")

	check, err := controller.CheckDuplicate(ctx, &CheckDuplicateRequest{
		EquipmentID:   equipment.ID,
		Type:          "Calibration",
		ScheduledDate: day,
		ExcludeID:     &first.Task.ID,
	})
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate)

	scheduled, err := controller.List(ctx, repositories.MaintenanceFilter{Status: models.MaintenanceScheduled})
	require.NoError(t, err)
	assert.Len(t, scheduled, 2)

	_, err = controller.List(ctx, repositories.MaintenanceFilter{Status: "Done"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	require.NoError(t, controller.Delete(ctx, second.Task.ID))
	_, err = controller.Update(ctx, second.Task.ID, &UpdateMaintenanceRequest{})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
