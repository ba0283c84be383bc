package services

import (
	"context"
	"time"

	"labventory/config"
	"labventory/internal/constants"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/pkg/logger"

	"github.com/shopspring/decimal"
)

type EquipmentStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
}

type ChemicalStats struct {
	Total        int            `json:"total"`
	LowStock     int            `json:"lowStock"`
	ExpiringSoon int            `json:"expiringSoon"`
	Expired      int            `json:"expired"`
	ByHazard     map[string]int `json:"byHazard"`
}

type MaintenanceStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	Overdue  int            `json:"overdue"`
}

type DashboardStats struct {
	Equipment       EquipmentStats   `json:"equipment"`
	Chemicals       ChemicalStats    `json:"chemicals"`
	ActiveCheckouts int64            `json:"activeCheckouts"`
	Maintenance     MaintenanceStats `json:"maintenance"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}

// InventoryAlerts lists the items that need attention right now
type InventoryAlerts struct {
	LowStock []*models.Chemical        `json:"lowStock"`
	Expiring []*models.Chemical        `json:"expiring"`
	Expired  []*models.Chemical        `json:"expired"`
	Overdue  []*models.MaintenanceTask `json:"overdue"`
}

func (a *InventoryAlerts) Empty() bool {
	return len(a.LowStock) == 0 && len(a.Expiring) == 0 && len(a.Expired) == 0 && len(a.Overdue) == 0
}

func (a *InventoryAlerts) Count() int {
	return len(a.LowStock) + len(a.Expiring) + len(a.Expired) + len(a.Overdue)
}

type StatsService struct {
	db                database.DB
	repos             repositories.Repository
	lowStockThreshold decimal.Decimal
	expiryWindowDays  int
	now               func() time.Time
	log               logger.Logger
}

func NewStatsService(db database.DB, repos repositories.Repository, config config.Config) *StatsService {
	return &StatsService{
		db:                db,
		repos:             repos,
		lowStockThreshold: decimal.NewFromFloat(config.LowStockThreshold),
		expiryWindowDays:  config.ExpiryWindowDays,
		now:               time.Now,
		log:               logger.New("StatsService"),
	}
}

// Dashboard returns the counters, served from the general cache for a minute
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	log := logger.NewWithContext(ctx, "StatsService").Function("Dashboard")

	cache := database.NewCacheBuilder(s.db.Cache.General, constants.StatsCacheKey).WithContext(ctx)

	var cached DashboardStats
	if found, err := cache.Get(&cached); err != nil {
		log.Warn("failed to read cached stats", "error", err)
	} else if found {
		return &cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.WithStruct(stats).WithTTL(constants.StatsCacheExpiry).Set(); err != nil {
		log.Warn("failed to cache stats", "error", err)
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	log := logger.NewWithContext(ctx, "StatsService").Function("compute")
	now := s.now()

	stats := &DashboardStats{GeneratedAt: now.UTC()}

	equipment, err := s.repos.Equipment.List(ctx, s.db.SQL, repositories.EquipmentFilter{IncludeHidden: true})
	if err != nil {
		return nil, log.Err("failed to load equipment", err)
	}
	stats.Equipment = EquipmentStats{
		Total:      len(equipment),
		ByStatus:   map[string]int{},
		ByCategory: map[string]int{},
	}
	for _, status := range models.EquipmentStatuses {
		stats.Equipment.ByStatus[string(status)] = 0
	}
	for _, e := range equipment {
		stats.Equipment.ByStatus[string(e.Status)]++
		if e.Category != "" {
			stats.Equipment.ByCategory[e.Category]++
		}
	}

	chemicals, err := s.repos.Chemical.List(ctx, s.db.SQL, repositories.ChemicalFilter{})
	if err != nil {
		return nil, log.Err("failed to load chemicals", err)
	}
	stats.Chemicals = ChemicalStats{Total: len(chemicals), ByHazard: map[string]int{}}
	for _, level := range models.HazardLevels {
		stats.Chemicals.ByHazard[string(level)] = 0
	}
	for _, c := range chemicals {
		stats.Chemicals.ByHazard[string(c.HazardLevel)]++
		if c.LowStock(s.lowStockThreshold) {
			stats.Chemicals.LowStock++
		}
		if c.ExpiresWithin(now, s.expiryWindowDays) {
			stats.Chemicals.ExpiringSoon++
		}
		if c.Expired(now) {
			stats.Chemicals.Expired++
		}
	}

	actions, err := s.repos.CheckInOut.CountByAction(ctx, s.db.SQL)
	if err != nil {
		return nil, log.Err("failed to count check-in/out entries", err)
	}
	stats.ActiveCheckouts = actions[models.ActionCheckOut] - actions[models.ActionCheckIn]

	tasks, err := s.repos.Maintenance.List(ctx, s.db.SQL, repositories.MaintenanceFilter{})
	if err != nil {
		return nil, log.Err("failed to load maintenance", err)
	}
	stats.Maintenance = MaintenanceStats{Total: len(tasks), ByStatus: map[string]int{}}
	for _, status := range models.MaintenanceStatuses {
		stats.Maintenance.ByStatus[string(status)] = 0
	}
	for _, task := range tasks {
		stats.Maintenance.ByStatus[string(task.Status)]++
		if task.Overdue(now) {
			stats.Maintenance.Overdue++
		}
	}

	return stats, nil
}

func (s *StatsService) Alerts(ctx context.Context) (*InventoryAlerts, error) {
	log := logger.NewWithContext(ctx, "StatsService").Function("Alerts")
	now := s.now()

	lowStock, err := s.repos.Chemical.LowStock(ctx, s.db.SQL, s.lowStockThreshold)
	if err != nil {
		return nil, log.Err("failed to load low stock chemicals", err)
	}

	expiring, err := s.repos.Chemical.Expiring(ctx, s.db.SQL, now, s.expiryWindowDays)
	if err != nil {
		return nil, log.Err("failed to load expiring chemicals", err)
	}

	chemicals, err := s.repos.Chemical.List(ctx, s.db.SQL, repositories.ChemicalFilter{})
	if err != nil {
		return nil, log.Err("failed to load chemicals", err)
	}
	expired := make([]*models.Chemical, 0)
	for _, c := range chemicals {
		if c.Expired(now) {
			expired = append(expired, c)
		}
	}

	overdue, err := s.repos.Maintenance.Overdue(ctx, s.db.SQL, now)
	if err != nil {
		return nil, log.Err("failed to load overdue maintenance", err)
	}

	return &InventoryAlerts{
		LowStock: lowStock,
		Expiring: expiring,
		Expired:  expired,
		Overdue:  overdue,
	}, nil
}
