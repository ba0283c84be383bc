package repositories

import (
	"context"
	"time"

	"labventory/internal/constants"
	"labventory/internal/events"
	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaintenanceFilter struct {
	Status      MaintenanceStatus
	EquipmentID *uuid.UUID
}

type MaintenanceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, task *MaintenanceTask) error
	CreateBatch(ctx context.Context, tx *gorm.DB, tasks []*MaintenanceTask) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*MaintenanceTask, error)
	ListByEquipment(ctx context.Context, tx *gorm.DB, equipmentID uuid.UUID) ([]*MaintenanceTask, error)
	List(ctx context.Context, tx *gorm.DB, filter MaintenanceFilter) ([]*MaintenanceTask, error)
	Overdue(ctx context.Context, tx *gorm.DB, now time.Time) ([]*MaintenanceTask, error)
	Update(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		updates map[string]any,
	) (*MaintenanceTask, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type maintenanceRepository struct {
	bus *events.EventBus
}

func NewMaintenanceRepository(bus *events.EventBus) MaintenanceRepository {
	return &maintenanceRepository{bus: bus}
}

func (r *maintenanceRepository) Create(ctx context.Context, tx *gorm.DB, task *MaintenanceTask) error {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(task).Error; err != nil {
		return log.Err("failed to create maintenance task", err, "equipmentID", task.EquipmentID)
	}

	publishChange(ctx, r.bus, events.MAINTENANCE_CHANNEL, events.CREATED, task.ID, task)
	return nil
}

func (r *maintenanceRepository) CreateBatch(
	ctx context.Context,
	tx *gorm.DB,
	tasks []*MaintenanceTask,
) error {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("CreateBatch")

	if len(tasks) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).CreateInBatches(tasks, constants.RecommendedBatchSize).Error; err != nil {
		return log.Err("failed to create maintenance batch", err, "count", len(tasks))
	}

	for _, task := range tasks {
		publishChange(ctx, r.bus, events.MAINTENANCE_CHANNEL, events.CREATED, task.ID, task)
	}
	return nil
}

func (r *maintenanceRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*MaintenanceTask, error) {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("GetByID")

	var task MaintenanceTask
	if err := tx.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to get maintenance task", err, "id", id)
	}
	return &task, nil
}

func (r *maintenanceRepository) ListByEquipment(
	ctx context.Context,
	tx *gorm.DB,
	equipmentID uuid.UUID,
) ([]*MaintenanceTask, error) {
	return r.List(ctx, tx, MaintenanceFilter{EquipmentID: &equipmentID})
}

func (r *maintenanceRepository) List(
	ctx context.Context,
	tx *gorm.DB,
	filter MaintenanceFilter,
) ([]*MaintenanceTask, error) {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("List")

	query := tx.WithContext(ctx).Model(&MaintenanceTask{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EquipmentID != nil {
		query = query.Where("equipment_id = ?", *filter.EquipmentID)
	}

	var tasks []*MaintenanceTask
	if err := query.Order("scheduled_date ASC").Find(&tasks).Error; err != nil {
		return nil, log.Err("failed to list maintenance tasks", err)
	}
	return tasks, nil
}

// Overdue filters in Go so timestamps with offsets compare correctly on sqlite
func (r *maintenanceRepository) Overdue(
	ctx context.Context,
	tx *gorm.DB,
	now time.Time,
) ([]*MaintenanceTask, error) {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("Overdue")

	var tasks []*MaintenanceTask
	if err := tx.WithContext(ctx).
		Where("status <> ?", MaintenanceCompleted).
		Order("scheduled_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, log.Err("failed to list open maintenance tasks", err)
	}

	overdue := make([]*MaintenanceTask, 0, len(tasks))
	for _, task := range tasks {
		if task.Overdue(now) {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

func (r *maintenanceRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	updates map[string]any,
) (*MaintenanceTask, error) {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("Update")

	result := tx.WithContext(ctx).Model(&MaintenanceTask{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update maintenance task", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	task, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	publishChange(ctx, r.bus, events.MAINTENANCE_CHANNEL, events.UPDATED, id, task)
	return task, nil
}

func (r *maintenanceRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "maintenanceRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&MaintenanceTask{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete maintenance task", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	publishChange(ctx, r.bus, events.MAINTENANCE_CHANNEL, events.DELETED, id, nil)
	return nil
}
