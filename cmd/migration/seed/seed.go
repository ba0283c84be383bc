package seed

import (
	"context"
	"errors"
	"time"

	"labventory/config"
	"labventory/internal/authz"
	"labventory/internal/database"
	. "labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/pkg/logger"

	"github.com/shopspring/decimal"
)

const demoPassword = "password"

func stringPtr(s string) *string {
	return &s
}

func daysFromNow(days int) *time.Time {
	date := time.Now().UTC().AddDate(0, 0, days)
	return &date
}

// Seed loads demo accounts, one per role, and a small inventory
func Seed(db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	ctx := context.Background()
	repos := repositories.New(db, nil)
	service := services.New(db, config, repos)

	if err := seedUsers(ctx, db, service, repos, log); err != nil {
		return err
	}

	equipment := []*Equipment{
		{Name: "Compound Microscope", Code: stringPtr("EQ-001"), Category: "Optics", Quantity: 12, Location: "Lab A", Condition: "Good", PurchaseDate: daysFromNow(-400)},
		{Name: "Bunsen Burner", Code: stringPtr("EQ-002"), Category: "Heating", Quantity: 20, Location: "Lab A", Condition: "Good"},
		{Name: "Digital Balance", Code: stringPtr("EQ-003"), Category: "Measurement", Quantity: 4, Location: "Lab B", Condition: "Fair", LastMaintenance: daysFromNow(-90)},
		{Name: "Centrifuge", Code: stringPtr("EQ-004"), Category: "Separation", Quantity: 1, Location: "Lab B", Condition: "Good"},
		{Name: "Fume Hood", Code: stringPtr("EQ-005"), Category: "Safety", Quantity: 2, Location: "Lab C", Status: EquipmentStatusMaintenance, Condition: "Needs service"},
	}
	if err := repos.Equipment.CreateBatch(ctx, db.SQL, equipment); err != nil {
		return log.Err("failed to seed equipment", err)
	}

	chemicals := []*Chemical{
		{Name: "Sodium Chloride", Code: stringPtr("CH-001"), Formula: "NaCl", Quantity: decimal.NewFromInt(500), Unit: "g", Location: "Cabinet 1", ExpiryDate: daysFromNow(720)},
		{Name: "Hydrochloric Acid", Code: stringPtr("CH-002"), Formula: "HCl", Quantity: decimal.RequireFromString("2.5"), Unit: "L", HazardLevel: HazardHigh, Location: "Acid Cabinet", ExpiryDate: daysFromNow(20), Supplier: stringPtr("Acme Supply")},
		{Name: "Ethanol", Code: stringPtr("CH-003"), Formula: "C2H5OH", Quantity: decimal.RequireFromString("0.4"), Unit: "L", HazardLevel: HazardMedium, Location: "Flammables", ExpiryDate: daysFromNow(180)},
		{Name: "Copper Sulfate", Code: stringPtr("CH-004"), Formula: "CuSO4", Quantity: decimal.NewFromInt(250), Unit: "g", HazardLevel: HazardMedium, Location: "Cabinet 2", ExpiryDate: daysFromNow(-5)},
	}
	if err := repos.Chemical.CreateBatch(ctx, db.SQL, chemicals); err != nil {
		return log.Err("failed to seed chemicals", err)
	}

	tasks := []*MaintenanceTask{
		{EquipmentID: equipment[0].ID, EquipmentName: equipment[0].Name, Type: "Lens Cleaning", ScheduledDate: time.Now().UTC().AddDate(0, 0, 7), Priority: PriorityLow, AssignedTo: "assistant@example.com"},
		{EquipmentID: equipment[2].ID, EquipmentName: equipment[2].Name, Type: "Calibration", ScheduledDate: time.Now().UTC().AddDate(0, 0, -3), Priority: PriorityHigh, AssignedTo: "teacher@example.com"},
		{EquipmentID: equipment[4].ID, EquipmentName: equipment[4].Name, Type: "Airflow Inspection", ScheduledDate: time.Now().UTC().AddDate(0, 0, 1), Status: MaintenanceInProgress, Priority: PriorityMedium, Description: stringPtr("Check sash alarm and airflow")},
	}
	if err := repos.Maintenance.CreateBatch(ctx, db.SQL, tasks); err != nil {
		return log.Err("failed to seed maintenance", err)
	}

	log.Info("Seed complete",
		"equipment", len(equipment),
		"chemicals", len(chemicals),
		"maintenance", len(tasks),
	)
	return nil
}

func seedUsers(
	ctx context.Context,
	db database.DB,
	service services.Service,
	repos repositories.Repository,
	log logger.Logger,
) error {
	users := []struct {
		email string
		name  string
		role  authz.Role
	}{
		{"admin@example.com", "Administrator", authz.RoleAdmin},
		{"teacher@example.com", "Test Teacher", authz.RoleTeacher},
		{"assistant@example.com", "Lab Assistant", authz.RoleLabAssistant},
		{"student@example.com", "Test Student", authz.RoleStudent},
	}

	for _, user := range users {
		session, err := service.Auth.SignUp(ctx, services.SignUpRequest{
			Email:       user.email,
			Password:    demoPassword,
			DisplayName: user.name,
		})
		if errors.Is(err, services.ErrEmailTaken) {
			log.Info("User already exists", "email", user.email)
			continue
		}
		if err != nil {
			return log.Err("failed to create user", err, "email", user.email)
		}

		if user.role != session.User.Role {
			if _, err := repos.UserProfile.ChangeRole(ctx, db.SQL, session.User.ID, user.role); err != nil {
				return log.Err("failed to assign role", err, "email", user.email)
			}
		}
		log.Info("Seeded user", "email", user.email, "role", user.role)
	}

	return nil
}
