package repositories

import (
	"context"
	"strings"

	"labventory/internal/constants"
	"labventory/internal/database"
	"labventory/internal/events"
	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EquipmentFilter struct {
	Location      string
	Status        EquipmentStatus
	Category      string
	IncludeHidden bool
}

type EquipmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, equipment *Equipment) error
	CreateBatch(ctx context.Context, tx *gorm.DB, equipment []*Equipment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Equipment, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*Equipment, error)
	List(ctx context.Context, tx *gorm.DB, filter EquipmentFilter) ([]*Equipment, error)
	FindByName(ctx context.Context, tx *gorm.DB, name string) ([]*Equipment, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) (*Equipment, error)
	UpdateStatusQuantity(
		ctx context.Context,
		tx *gorm.DB,
		equipment *Equipment,
		status EquipmentStatus,
		quantity int,
	) error
	SetHidden(ctx context.Context, tx *gorm.DB, id uuid.UUID, hidden bool) (*Equipment, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type equipmentRepository struct {
	db  database.DB
	bus *events.EventBus
}

func NewEquipmentRepository(db database.DB, bus *events.EventBus) EquipmentRepository {
	return &equipmentRepository{db: db, bus: bus}
}

func (r *equipmentRepository) Create(ctx context.Context, tx *gorm.DB, equipment *Equipment) error {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(equipment).Error; err != nil {
		return log.Err("failed to create equipment", err, "name", equipment.Name)
	}

	publishChange(ctx, r.bus, events.EQUIPMENT_CHANNEL, events.CREATED, equipment.ID, equipment)
	return nil
}

func (r *equipmentRepository) CreateBatch(
	ctx context.Context,
	tx *gorm.DB,
	equipment []*Equipment,
) error {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("CreateBatch")

	if len(equipment) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).CreateInBatches(equipment, constants.RecommendedBatchSize).Error; err != nil {
		return log.Err("failed to create equipment batch", err, "count", len(equipment))
	}

	for _, item := range equipment {
		publishChange(ctx, r.bus, events.EQUIPMENT_CHANNEL, events.CREATED, item.ID, item)
	}
	return nil
}

func (r *equipmentRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*Equipment, error) {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("GetByID")

	if cached, ok := cacheGet[Equipment](ctx, r.db.Cache.General, constants.EquipmentCachePrefix, id); ok {
		return cached, nil
	}

	var equipment Equipment
	if err := tx.WithContext(ctx).First(&equipment, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to get equipment by id", err, "id", id)
	}

	cacheSet(ctx, r.db.Cache.General, constants.EquipmentCachePrefix, id, &equipment, constants.InventoryCacheExpiry)
	return &equipment, nil
}

func (r *equipmentRepository) GetByCode(
	ctx context.Context,
	tx *gorm.DB,
	code string,
) (*Equipment, error) {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("GetByCode")

	var equipment Equipment
	if err := tx.WithContext(ctx).First(&equipment, "code = ?", strings.TrimSpace(code)).Error; err != nil {
		return nil, lookupError(log, "failed to get equipment by code", err, "code", code)
	}
	return &equipment, nil
}

func (r *equipmentRepository) List(
	ctx context.Context,
	tx *gorm.DB,
	filter EquipmentFilter,
) ([]*Equipment, error) {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("List")

	query := tx.WithContext(ctx).Model(&Equipment{})
	if !filter.IncludeHidden {
		query = query.Where("hide_from_reports = ?", false)
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		query = query.Where("LOWER(location) = ?", strings.ToLower(location))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var equipment []*Equipment
	if err := query.Order("name ASC").Find(&equipment).Error; err != nil {
		return nil, log.Err("failed to list equipment", err)
	}
	return equipment, nil
}

func (r *equipmentRepository) FindByName(
	ctx context.Context,
	tx *gorm.DB,
	name string,
) ([]*Equipment, error) {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("FindByName")

	var equipment []*Equipment
	if err := tx.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		Order("created_at ASC").
		Find(&equipment).Error; err != nil {
		return nil, log.Err("failed to find equipment by name", err, "name", name)
	}
	return equipment, nil
}

func (r *equipmentRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	updates map[string]any,
) (*Equipment, error) {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("Update")

	result := tx.WithContext(ctx).Model(&Equipment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update equipment", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var equipment Equipment
	if err := tx.WithContext(ctx).First(&equipment, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to reload equipment", err, "id", id)
	}

	cacheInvalidate(ctx, r.db.Cache.General, constants.EquipmentCachePrefix, id)
	publishChange(ctx, r.bus, events.EQUIPMENT_CHANNEL, events.UPDATED, id, &equipment)
	return &equipment, nil
}

func (r *equipmentRepository) UpdateStatusQuantity(
	ctx context.Context,
	tx *gorm.DB,
	equipment *Equipment,
	status EquipmentStatus,
	quantity int,
) error {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("UpdateStatusQuantity")

	if err := tx.WithContext(ctx).Model(equipment).Updates(map[string]any{
		"status":   status,
		"quantity": quantity,
	}).Error; err != nil {
		return log.Err("failed to update equipment status", err, "id", equipment.ID)
	}

	equipment.Status = status
	equipment.Quantity = quantity

	cacheInvalidate(ctx, r.db.Cache.General, constants.EquipmentCachePrefix, equipment.ID)
	publishChange(ctx, r.bus, events.EQUIPMENT_CHANNEL, events.UPDATED, equipment.ID, equipment)
	return nil
}

func (r *equipmentRepository) SetHidden(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	hidden bool,
) (*Equipment, error) {
	return r.Update(ctx, tx, id, map[string]any{"hide_from_reports": hidden})
}

func (r *equipmentRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "equipmentRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&Equipment{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete equipment", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	cacheInvalidate(ctx, r.db.Cache.General, constants.EquipmentCachePrefix, id)
	publishChange(ctx, r.bus, events.EQUIPMENT_CHANNEL, events.DELETED, id, nil)
	return nil
}
