package repositories

import (
	"context"
	"testing"
	"time"

	"labventory/config"
	"labventory/internal/authz"
	appContext "labventory/internal/context"
	"labventory/internal/database"
	"labventory/internal/events"
	"labventory/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db    database.DB
	repos Repository
	bus   *events.EventBus
}

func setup(t *testing.T) testEnv {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.MigrateModels())
	t.Cleanup(func() { _ = db.Close() })

	bus := events.New(nil, config.Config{})
	t.Cleanup(func() { _ = bus.Close() })

	return testEnv{db: db, repos: New(db, bus), bus: bus}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestEquipmentRepository_ListFilters(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.Equipment

	require.NoError(t, repo.CreateBatch(ctx, env.db.SQL, []*models.Equipment{
		{Name: "Microscope", Category: "Optics", Location: "Lab A", Quantity: 2},
		{Name: "Centrifuge", Category: "Separation", Location: "lab a", Quantity: 1},
		{Name: "Old Scale", Category: "Weighing", Location: "Lab B", HideFromReports: true},
		{Name: "Hot Plate", Category: "Heating", Location: "Lab B", Status: models.EquipmentStatusMaintenance},
	}))

	tests := []struct {
		name     string
		filter   EquipmentFilter
		expected []string
	}{
		{"hidden excluded by default", EquipmentFilter{}, []string{"Centrifuge", "Hot Plate", "Microscope"}},
		{"include hidden", EquipmentFilter{IncludeHidden: true}, []string{"Centrifuge", "Hot Plate", "Microscope", "Old Scale"}},
		{"location ignores case", EquipmentFilter{Location: "LAB A"}, []string{"Centrifuge", "Microscope"}},
		{"status", EquipmentFilter{Status: models.EquipmentStatusMaintenance}, []string{"Hot Plate"}},
		{"category", EquipmentFilter{Category: "Optics"}, []string{"Microscope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			equipment, err := repo.List(ctx, env.db.SQL, tt.filter)
			require.NoError(t, err)

			names := make([]string, 0, len(equipment))
			for _, e := range equipment {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestEquipmentRepository_FindByNameIsExact(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.Equipment

	require.NoError(t, repo.Create(ctx, env.db.SQL, &models.Equipment{Name: "Microscope", Location: "Lab A"}))

	found, err := repo.FindByName(ctx, env.db.SQL, "  Microscope  ")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.FindByName(ctx, env.db.SQL, "microscope")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEquipmentRepository_UpdateAndDelete(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.Equipment

	equipment := &models.Equipment{Name: "Bunsen Burner", Quantity: 3, Code: strPtr("EQ-001")}
	require.NoError(t, repo.Create(ctx, env.db.SQL, equipment))

	updated, err := repo.Update(ctx, env.db.SQL, equipment.ID, map[string]any{"location": "Lab C"})
	require.NoError(t, err)
	assert.Equal(t, "Lab C", updated.Location)
	assert.Equal(t, 3, updated.Quantity)

	hidden, err := repo.SetHidden(ctx, env.db.SQL, equipment.ID, true)
	require.NoError(t, err)
	assert.True(t, hidden.HideFromReports)

	byCode, err := repo.GetByCode(ctx, env.db.SQL, "EQ-001")
	require.NoError(t, err)
	assert.Equal(t, equipment.ID, byCode.ID)

	require.NoError(t, repo.Delete(ctx, env.db.SQL, equipment.ID))
	_, err = repo.GetByID(ctx, env.db.SQL, equipment.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, env.db.SQL, equipment.ID), ErrNotFound)
	_, err = repo.Update(ctx, env.db.SQL, uuid.New(), map[string]any{"location": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEquipmentRepository_PublishesAfterCommit(t *testing.T) {
	env := setup(t)
	received := make(chan events.Event, 4)
	require.NoError(t, env.bus.Subscribe(events.EQUIPMENT_CHANNEL, func(e events.Event) error {
		received <- e
		return nil
	}))

	actor := uuid.New()
	ctx := appContext.WithUserID(context.Background(), actor)

	tx := env.db.SQL.Begin()
	txCtx := appContext.WithTransaction(ctx, tx)
	equipment := &models.Equipment{Name: "Spectrometer"}
	require.NoError(t, env.repos.Equipment.Create(txCtx, tx, equipment))

	select {
	case <-received:
		t.Fatal("event must not be published before commit")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx.Commit().Error)
	appContext.RunAfterCommit(txCtx)

	select {
	case event := <-received:
		assert.Equal(t, events.CREATED, event.Type)
		assert.Equal(t, equipment.ID.String(), event.Data["id"])
		assert.Equal(t, &actor, event.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected created event")
	}
}

func TestChemicalRepository_Queries(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.Chemical
	now := time.Now().UTC()

	require.NoError(t, repo.CreateBatch(ctx, env.db.SQL, []*models.Chemical{
		{Name: "Ethanol", Formula: "C2H5OH", Quantity: decimal.NewFromFloat(0.5), ExpiryDate: timePtr(now.Add(10 * 24 * time.Hour))},
		{Name: "Ethanol", Formula: "C2H6O", Quantity: decimal.NewFromInt(4), ExpiryDate: timePtr(now.Add(5 * 24 * time.Hour))},
		{Name: "Sodium Chloride", Formula: "NaCl", Quantity: decimal.NewFromInt(10), ExpiryDate: timePtr(now.Add(-24 * time.Hour))},
		{Name: "Acetone", Formula: "C3H6O", Quantity: decimal.NewFromInt(2), ExpiryDate: timePtr(now.Add(90 * 24 * time.Hour))},
	}))

	t.Run("find by name and formula", func(t *testing.T) {
		found, err := repo.FindByName(ctx, env.db.SQL, "Ethanol", "C2H5OH")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = repo.FindByName(ctx, env.db.SQL, "Ethanol", "")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = repo.FindByName(ctx, env.db.SQL, "Ethanol", "CH3OH")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("search matches name or formula", func(t *testing.T) {
		found, err := repo.Search(ctx, env.db.SQL, "nacl")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Sodium Chloride", found[0].Name)
	})

	t.Run("low stock", func(t *testing.T) {
		found, err := repo.LowStock(ctx, env.db.SQL, decimal.NewFromInt(1))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "C2H5OH", found[0].Formula)
	})

	t.Run("expiring soonest first and excludes expired", func(t *testing.T) {
		found, err := repo.Expiring(ctx, env.db.SQL, now, 30)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "C2H6O", found[0].Formula)
		assert.Equal(t, "C2H5OH", found[1].Formula)
	})

	t.Run("update quantity", func(t *testing.T) {
		acetone, err := repo.FindByName(ctx, env.db.SQL, "Acetone", "")
		require.NoError(t, err)
		require.Len(t, acetone, 1)

		updated, err := repo.UpdateQuantity(ctx, env.db.SQL, acetone[0].ID, decimal.RequireFromString("1.25"))
		require.NoError(t, err)
		assert.True(t, updated.Quantity.Equal(decimal.RequireFromString("1.25")))
	})
}

func TestCheckInOutRepository_ActiveCounts(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.CheckInOut

	itemID := uuid.New()
	other := uuid.New()
	record := func(id uuid.UUID, action models.CheckAction, qty int64) {
		require.NoError(t, repo.Create(ctx, env.db.SQL, &models.CheckInOut{
			ItemID:   id,
			ItemName: "Pipette",
			ItemType: models.ItemTypeEquipment,
			Action:   action,
			Quantity: decimal.NewFromInt(qty),
		}))
	}

	before, err := repo.ActiveCount(ctx, env.db.SQL, itemID)
	require.NoError(t, err)
	assert.True(t, before.IsZero())

	record(itemID, models.ActionCheckOut, 2)
	record(other, models.ActionCheckOut, 1)

	during, err := repo.ActiveCount(ctx, env.db.SQL, itemID)
	require.NoError(t, err)
	assert.True(t, during.Equal(decimal.NewFromInt(2)))

	record(itemID, models.ActionCheckIn, 2)

	after, err := repo.ActiveCount(ctx, env.db.SQL, itemID)
	require.NoError(t, err)
	assert.True(t, after.Equal(before))

	all, err := repo.ActiveCounts(ctx, env.db.SQL)
	require.NoError(t, err)
	assert.True(t, all[other].Equal(decimal.NewFromInt(1)))

	counts, err := repo.CountByAction(ctx, env.db.SQL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.ActionCheckOut])
	assert.Equal(t, int64(1), counts[models.ActionCheckIn])

	entries, err := repo.List(ctx, env.db.SQL, CheckInOutFilter{ItemID: &itemID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCheckIn, entries[0].Action, "newest first")
}

func TestMaintenanceRepository_Overdue(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.Maintenance
	now := time.Now().UTC()
	equipmentID := uuid.New()

	require.NoError(t, repo.CreateBatch(ctx, env.db.SQL, []*models.MaintenanceTask{
		{EquipmentID: equipmentID, EquipmentName: "Autoclave", Type: "Calibration", ScheduledDate: now.Add(-48 * time.Hour)},
		{EquipmentID: equipmentID, EquipmentName: "Autoclave", Type: "Cleaning", ScheduledDate: now.Add(-24 * time.Hour), Status: models.MaintenanceCompleted},
		{EquipmentID: uuid.New(), EquipmentName: "Fume Hood", Type: "Inspection", ScheduledDate: now.Add(24 * time.Hour)},
	}))

	overdue, err := repo.Overdue(ctx, env.db.SQL, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Calibration", overdue[0].Type)

	byEquipment, err := repo.ListByEquipment(ctx, env.db.SQL, equipmentID)
	require.NoError(t, err)
	assert.Len(t, byEquipment, 2)

	updated, err := repo.Update(ctx, env.db.SQL, overdue[0].ID, map[string]any{
		"status":         models.MaintenanceCompleted,
		"completed_date": now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, updated.Status)

	overdue, err = repo.Overdue(ctx, env.db.SQL, now)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestUserProfileRepository_AssignAndChangeRole(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.UserProfile
	id := uuid.New()

	profile, err := repo.Assign(ctx, env.db.SQL, id, "Student@Lab.edu", "")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleStudent, profile.Role)
	assert.Equal(t, "student@lab.edu", profile.Email)

	t.Run("assign twice overwrites", func(t *testing.T) {
		stored, err := repo.GetByID(ctx, env.db.SQL, id)
		require.NoError(t, err)

		reassigned, err := repo.Assign(ctx, env.db.SQL, id, "student@lab.edu", authz.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, authz.RoleTeacher, reassigned.Role)
		assert.True(t, stored.CreatedAt.Equal(reassigned.CreatedAt), "returned profile keeps the stored creation time")

		loaded, err := repo.GetByID(ctx, env.db.SQL, id)
		require.NoError(t, err)
		assert.Equal(t, authz.RoleTeacher, loaded.Role)
		assert.True(t, loaded.CreatedAt.Equal(reassigned.CreatedAt))

		all, err := repo.List(ctx, env.db.SQL)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("change role recomputes permissions", func(t *testing.T) {
		_, err := repo.ChangeRole(ctx, env.db.SQL, id, authz.RoleAdmin)
		require.NoError(t, err)

		loaded, err := repo.GetByID(ctx, env.db.SQL, id)
		require.NoError(t, err)
		assert.Equal(t, authz.PermissionStrings(authz.RoleAdmin), []string(loaded.Permissions))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := repo.ChangeRole(ctx, env.db.SQL, id, authz.Role("janitor"))
		assert.ErrorIs(t, err, authz.ErrInvalidRole)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, err := repo.ChangeRole(ctx, env.db.SQL, uuid.New(), authz.RoleAdmin)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, env.db.SQL, id))
		_, err := repo.GetByID(ctx, env.db.SQL, id)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserCredentialRepository(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := env.repos.UserCredential

	credential := &models.UserCredential{Email: " Teacher@Lab.edu ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, env.db.SQL, credential))

	loaded, err := repo.GetByEmail(ctx, env.db.SQL, "teacher@lab.edu")
	require.NoError(t, err)
	assert.Equal(t, credential.ID, loaded.ID)

	err = repo.Create(ctx, env.db.SQL, &models.UserCredential{Email: "teacher@lab.edu", PasswordHash: "x"})
	assert.Error(t, err, "email is unique")

	_, err = repo.GetByEmail(ctx, env.db.SQL, "nobody@lab.edu")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupError(t *testing.T) {
	env := setup(t)
	_, err := env.repos.Maintenance.GetByID(context.Background(), env.db.SQL, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, gorm.ErrRecordNotFound)
}
