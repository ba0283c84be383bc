package services

import (
	"context"
	"testing"
	"time"

	"labventory/config"
	"labventory/internal/models"
	"labventory/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statsNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func seedStats(t *testing.T) (*StatsService, repositories.Repository) {
	t.Helper()
	db := setupTestDB(t)
	repos := repositories.New(db, nil)
	service := NewStatsService(db, repos, config.Config{LowStockThreshold: 1, ExpiryWindowDays: 30})
	service.now = func() time.Time { return statsNow }

	ctx := context.Background()
	in := func(days int) *time.Time {
		ts := statsNow.AddDate(0, 0, days)
		return &ts
	}

	for _, e := range []*models.Equipment{
		{Name: "Microscope", Category: "Optics"},
		{Name: "Telescope", Category: "Optics", Status: models.EquipmentStatusInUse},
		{Name: "Autoclave", Category: "Sterilization", Status: models.EquipmentStatusMaintenance, HideFromReports: true},
	} {
		require.NoError(t, repos.Equipment.Create(ctx, db.SQL, e))
	}

	for _, c := range []*models.Chemical{
		{Name: "Ethanol", Quantity: decimal.RequireFromString("0.5"), ExpiryDate: in(10)},
		{Name: "Acetone", Quantity: decimal.NewFromInt(4), ExpiryDate: in(-2), HazardLevel: models.HazardHigh},
		{Name: "Salt", Quantity: decimal.NewFromInt(10), ExpiryDate: in(90)},
		{Name: "Water", Quantity: decimal.NewFromInt(1)},
	} {
		require.NoError(t, repos.Chemical.Create(ctx, db.SQL, c))
	}

	itemID := uuid.New()
	for _, action := range []models.CheckAction{models.ActionCheckOut, models.ActionCheckOut, models.ActionCheckIn} {
		require.NoError(t, repos.CheckInOut.Create(ctx, db.SQL, &models.CheckInOut{
			ItemID: itemID, ItemName: "Microscope", ItemType: models.ItemTypeEquipment,
			Action: action, Quantity: decimal.NewFromInt(1),
		}))
	}

	for _, task := range []*models.MaintenanceTask{
		{EquipmentID: itemID, EquipmentName: "Microscope", Type: "Cleaning", ScheduledDate: statsNow.AddDate(0, 0, -3)},
		{EquipmentID: itemID, EquipmentName: "Microscope", Type: "Calibration", ScheduledDate: statsNow.AddDate(0, 0, -3), Status: models.MaintenanceCompleted},
		{EquipmentID: itemID, EquipmentName: "Microscope", Type: "Inspection", ScheduledDate: statsNow.AddDate(0, 0, 5)},
	} {
		require.NoError(t, repos.Maintenance.Create(ctx, db.SQL, task))
	}

	return service, repos
}

func TestStatsService_Dashboard(t *testing.T) {
	service, _ := seedStats(t)

	stats, err := service.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Equipment.Total)
	assert.Equal(t, 1, stats.Equipment.ByStatus["Available"])
	assert.Equal(t, 1, stats.Equipment.ByStatus["In Use"])
	assert.Equal(t, 0, stats.Equipment.ByStatus["Retired"])
	assert.Equal(t, 2, stats.Equipment.ByCategory["Optics"])

	assert.Equal(t, 4, stats.Chemicals.Total)
	assert.Equal(t, 1, stats.Chemicals.LowStock)
	assert.Equal(t, 1, stats.Chemicals.ExpiringSoon)
	assert.Equal(t, 1, stats.Chemicals.Expired)
	assert.Equal(t, 1, stats.Chemicals.ByHazard["High"])
	assert.Equal(t, 3, stats.Chemicals.ByHazard["Low"])

	assert.Equal(t, int64(1), stats.ActiveCheckouts)

	assert.Equal(t, 3, stats.Maintenance.Total)
	assert.Equal(t, 2, stats.Maintenance.ByStatus["Scheduled"])
	assert.Equal(t, 1, stats.Maintenance.Overdue)
}

func TestStatsService_Alerts(t *testing.T) {
	service, _ := seedStats(t)

	alerts, err := service.Alerts(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts.LowStock, 1)
	assert.Equal(t, "Ethanol", alerts.LowStock[0].Name)
	require.Len(t, alerts.Expiring, 1)
	assert.Equal(t, "Ethanol", alerts.Expiring[0].Name)
	require.Len(t, alerts.Expired, 1)
	assert.Equal(t, "Acetone", alerts.Expired[0].Name)
	require.Len(t, alerts.Overdue, 1)
	assert.Equal(t, "Cleaning", alerts.Overdue[0].Type)

	assert.False(t, alerts.Empty())
	assert.Equal(t, 4, alerts.Count())
	assert.True(t, (&InventoryAlerts{}).Empty())
}
