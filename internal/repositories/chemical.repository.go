package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"labventory/internal/constants"
	"labventory/internal/database"
	"labventory/internal/events"
	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChemicalFilter struct {
	Location    string
	HazardLevel HazardLevel
}

type ChemicalRepository interface {
	Create(ctx context.Context, tx *gorm.DB, chemical *Chemical) error
	CreateBatch(ctx context.Context, tx *gorm.DB, chemicals []*Chemical) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Chemical, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*Chemical, error)
	List(ctx context.Context, tx *gorm.DB, filter ChemicalFilter) ([]*Chemical, error)
	FindByName(ctx context.Context, tx *gorm.DB, name, formula string) ([]*Chemical, error)
	Search(ctx context.Context, tx *gorm.DB, term string) ([]*Chemical, error)
	LowStock(ctx context.Context, tx *gorm.DB, threshold decimal.Decimal) ([]*Chemical, error)
	Expiring(ctx context.Context, tx *gorm.DB, now time.Time, windowDays int) ([]*Chemical, error)
	UpdateQuantity(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		quantity decimal.Decimal,
	) (*Chemical, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) (*Chemical, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type chemicalRepository struct {
	db  database.DB
	bus *events.EventBus
}

func NewChemicalRepository(db database.DB, bus *events.EventBus) ChemicalRepository {
	return &chemicalRepository{db: db, bus: bus}
}

func (r *chemicalRepository) Create(ctx context.Context, tx *gorm.DB, chemical *Chemical) error {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(chemical).Error; err != nil {
		return log.Err("failed to create chemical", err, "name", chemical.Name)
	}

	publishChange(ctx, r.bus, events.CHEMICALS_CHANNEL, events.CREATED, chemical.ID, chemical)
	return nil
}

func (r *chemicalRepository) CreateBatch(
	ctx context.Context,
	tx *gorm.DB,
	chemicals []*Chemical,
) error {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("CreateBatch")

	if len(chemicals) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).CreateInBatches(chemicals, constants.RecommendedBatchSize).Error; err != nil {
		return log.Err("failed to create chemical batch", err, "count", len(chemicals))
	}

	for _, chemical := range chemicals {
		publishChange(ctx, r.bus, events.CHEMICALS_CHANNEL, events.CREATED, chemical.ID, chemical)
	}
	return nil
}

func (r *chemicalRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("GetByID")

	if cached, ok := cacheGet[Chemical](ctx, r.db.Cache.General, constants.ChemicalCachePrefix, id); ok {
		return cached, nil
	}

	var chemical Chemical
	if err := tx.WithContext(ctx).First(&chemical, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to get chemical by id", err, "id", id)
	}

	cacheSet(ctx, r.db.Cache.General, constants.ChemicalCachePrefix, id, &chemical, constants.InventoryCacheExpiry)
	return &chemical, nil
}

func (r *chemicalRepository) GetByCode(
	ctx context.Context,
	tx *gorm.DB,
	code string,
) (*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("GetByCode")

	var chemical Chemical
	if err := tx.WithContext(ctx).First(&chemical, "code = ?", strings.TrimSpace(code)).Error; err != nil {
		return nil, lookupError(log, "failed to get chemical by code", err, "code", code)
	}
	return &chemical, nil
}

func (r *chemicalRepository) List(
	ctx context.Context,
	tx *gorm.DB,
	filter ChemicalFilter,
) ([]*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("List")

	query := tx.WithContext(ctx).Model(&Chemical{})
	if location := strings.TrimSpace(filter.Location); location != "" {
		query = query.Where("LOWER(location) = ?", strings.ToLower(location))
	}
	if filter.HazardLevel != "" {
		query = query.Where("hazard_level = ?", filter.HazardLevel)
	}

	var chemicals []*Chemical
	if err := query.Order("name ASC").Find(&chemicals).Error; err != nil {
		return nil, log.Err("failed to list chemicals", err)
	}
	return chemicals, nil
}

func (r *chemicalRepository) FindByName(
	ctx context.Context,
	tx *gorm.DB,
	name, formula string,
) ([]*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("FindByName")

	query := tx.WithContext(ctx).Where("name = ?", strings.TrimSpace(name))
	if formula = strings.TrimSpace(formula); formula != "" {
		query = query.Where("formula = ?", formula)
	}

	var chemicals []*Chemical
	if err := query.Order("created_at ASC").Find(&chemicals).Error; err != nil {
		return nil, log.Err("failed to find chemical by name", err, "name", name, "formula", formula)
	}
	return chemicals, nil
}

func (r *chemicalRepository) Search(
	ctx context.Context,
	tx *gorm.DB,
	term string,
) ([]*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("Search")

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return r.List(ctx, tx, ChemicalFilter{})
	}

	pattern := "%" + term + "%"
	var chemicals []*Chemical
	if err := tx.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(formula) LIKE ?", pattern, pattern).
		Order("name ASC").
		Find(&chemicals).Error; err != nil {
		return nil, log.Err("failed to search chemicals", err, "term", term)
	}
	return chemicals, nil
}

// LowStock compares in Go because sqlite keeps decimals as text
func (r *chemicalRepository) LowStock(
	ctx context.Context,
	tx *gorm.DB,
	threshold decimal.Decimal,
) ([]*Chemical, error) {
	chemicals, err := r.List(ctx, tx, ChemicalFilter{})
	if err != nil {
		return nil, err
	}

	lowStock := make([]*Chemical, 0)
	for _, chemical := range chemicals {
		if chemical.LowStock(threshold) {
			lowStock = append(lowStock, chemical)
		}
	}
	return lowStock, nil
}

// Expiring returns chemicals expiring within windowDays, soonest first
func (r *chemicalRepository) Expiring(
	ctx context.Context,
	tx *gorm.DB,
	now time.Time,
	windowDays int,
) ([]*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("Expiring")

	var chemicals []*Chemical
	if err := tx.WithContext(ctx).Where("expiry_date IS NOT NULL").Find(&chemicals).Error; err != nil {
		return nil, log.Err("failed to list chemicals with expiry", err)
	}

	expiring := make([]*Chemical, 0)
	for _, chemical := range chemicals {
		if chemical.ExpiresWithin(now, windowDays) {
			expiring = append(expiring, chemical)
		}
	}

	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].ExpiryDate.Before(*expiring[j].ExpiryDate)
	})
	return expiring, nil
}

func (r *chemicalRepository) UpdateQuantity(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	quantity decimal.Decimal,
) (*Chemical, error) {
	return r.Update(ctx, tx, id, map[string]any{"quantity": quantity})
}

func (r *chemicalRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	updates map[string]any,
) (*Chemical, error) {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("Update")

	result := tx.WithContext(ctx).Model(&Chemical{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update chemical", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var chemical Chemical
	if err := tx.WithContext(ctx).First(&chemical, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to reload chemical", err, "id", id)
	}

	cacheInvalidate(ctx, r.db.Cache.General, constants.ChemicalCachePrefix, id)
	publishChange(ctx, r.bus, events.CHEMICALS_CHANNEL, events.UPDATED, id, &chemical)
	return &chemical, nil
}

func (r *chemicalRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "chemicalRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&Chemical{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete chemical", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	cacheInvalidate(ctx, r.db.Cache.General, constants.ChemicalCachePrefix, id)
	publishChange(ctx, r.bus, events.CHEMICALS_CHANNEL, events.DELETED, id, nil)
	return nil
}
