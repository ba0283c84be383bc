package websockets

import (
	"context"
	"fmt"

	"labventory/internal/database"
	"labventory/internal/events"
	"labventory/internal/repositories"
)

// SNAPSHOT_HISTORY_LIMIT caps the check-in/out log sent on subscribe
const SNAPSHOT_HISTORY_LIMIT = 200

// RepositorySnapshots serves subscription snapshots straight from the repositories
type RepositorySnapshots struct {
	db    database.DB
	repos repositories.Repository
}

func NewRepositorySnapshots(db database.DB, repos repositories.Repository) *RepositorySnapshots {
	return &RepositorySnapshots{db: db, repos: repos}
}

func (s *RepositorySnapshots) Snapshot(ctx context.Context, channel events.Channel) (any, error) {
	switch channel {
	case events.EQUIPMENT_CHANNEL:
		return s.repos.Equipment.List(ctx, s.db.SQL, repositories.EquipmentFilter{IncludeHidden: true})
	case events.CHEMICALS_CHANNEL:
		return s.repos.Chemical.List(ctx, s.db.SQL, repositories.ChemicalFilter{})
	case events.CHECKINOUT_CHANNEL:
		return s.repos.CheckInOut.List(ctx, s.db.SQL, repositories.CheckInOutFilter{Limit: SNAPSHOT_HISTORY_LIMIT})
	case events.MAINTENANCE_CHANNEL:
		return s.repos.Maintenance.List(ctx, s.db.SQL, repositories.MaintenanceFilter{})
	case events.USERS_CHANNEL:
		return s.repos.UserProfile.List(ctx, s.db.SQL)
	}
	return nil, fmt.Errorf("no snapshot for channel %q", channel)
}
