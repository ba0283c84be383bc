package repositories

import (
	"context"

	"labventory/internal/events"
	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CheckInOutFilter struct {
	ItemID    *uuid.UUID
	ItemType  ItemType
	Action    CheckAction
	UserEmail string
	Limit     int
	Offset    int
}

type CheckInOutRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *CheckInOut) error
	List(ctx context.Context, tx *gorm.DB, filter CheckInOutFilter) ([]*CheckInOut, error)
	ActiveCounts(ctx context.Context, tx *gorm.DB) (map[uuid.UUID]decimal.Decimal, error)
	ActiveCount(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (decimal.Decimal, error)
	CountByAction(ctx context.Context, tx *gorm.DB) (map[CheckAction]int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type checkInOutRepository struct {
	bus *events.EventBus
}

func NewCheckInOutRepository(bus *events.EventBus) CheckInOutRepository {
	return &checkInOutRepository{bus: bus}
}

func (r *checkInOutRepository) Create(ctx context.Context, tx *gorm.DB, entry *CheckInOut) error {
	log := logger.NewWithContext(ctx, "checkInOutRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return log.Err("failed to create check-in/out entry", err, "itemID", entry.ItemID)
	}

	publishChange(ctx, r.bus, events.CHECKINOUT_CHANNEL, events.CREATED, entry.ID, entry)
	return nil
}

func (r *checkInOutRepository) List(
	ctx context.Context,
	tx *gorm.DB,
	filter CheckInOutFilter,
) ([]*CheckInOut, error) {
	log := logger.NewWithContext(ctx, "checkInOutRepository").Function("List")

	query := tx.WithContext(ctx).Model(&CheckInOut{})
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.ItemType != "" {
		query = query.Where("item_type = ?", filter.ItemType)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserEmail != "" {
		query = query.Where("user_email = ?", filter.UserEmail)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entries []*CheckInOut
	if err := query.Order("timestamp DESC").Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, log.Err("failed to list check-in/out entries", err)
	}
	return entries, nil
}

type activeCountRow struct {
	ItemID   uuid.UUID
	Action   CheckAction
	Quantity decimal.Decimal
}

func (r *checkInOutRepository) activeCounts(
	ctx context.Context,
	tx *gorm.DB,
	itemID *uuid.UUID,
) (map[uuid.UUID]decimal.Decimal, error) {
	log := logger.NewWithContext(ctx, "checkInOutRepository").Function("activeCounts")

	query := tx.WithContext(ctx).Model(&CheckInOut{}).Select("item_id", "action", "quantity")
	if itemID != nil {
		query = query.Where("item_id = ?", *itemID)
	}

	var rows []activeCountRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, log.Err("failed to load check-in/out quantities", err)
	}

	counts := make(map[uuid.UUID]decimal.Decimal)
	for _, row := range rows {
		entry := CheckInOut{Action: row.Action, Quantity: row.Quantity}
		counts[row.ItemID] = counts[row.ItemID].Add(entry.Delta())
	}
	return counts, nil
}

// ActiveCounts is the checked-out quantity per item: check-outs minus check-ins
func (r *checkInOutRepository) ActiveCounts(
	ctx context.Context,
	tx *gorm.DB,
) (map[uuid.UUID]decimal.Decimal, error) {
	return r.activeCounts(ctx, tx, nil)
}

func (r *checkInOutRepository) ActiveCount(
	ctx context.Context,
	tx *gorm.DB,
	itemID uuid.UUID,
) (decimal.Decimal, error) {
	counts, err := r.activeCounts(ctx, tx, &itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return counts[itemID], nil
}

type actionCountRow struct {
	Action CheckAction
	Count  int64
}

func (r *checkInOutRepository) CountByAction(
	ctx context.Context,
	tx *gorm.DB,
) (map[CheckAction]int64, error) {
	log := logger.NewWithContext(ctx, "checkInOutRepository").Function("CountByAction")

	var rows []actionCountRow
	if err := tx.WithContext(ctx).
		Model(&CheckInOut{}).
		Select("action, COUNT(*) AS count").
		Group("action").
		Scan(&rows).Error; err != nil {
		return nil, log.Err("failed to count check-in/out entries", err)
	}

	counts := map[CheckAction]int64{ActionCheckIn: 0, ActionCheckOut: 0}
	for _, row := range rows {
		counts[row.Action] = row.Count
	}
	return counts, nil
}

func (r *checkInOutRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "checkInOutRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&CheckInOut{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete check-in/out entry", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	publishChange(ctx, r.bus, events.CHECKINOUT_CHANNEL, events.DELETED, id, nil)
	return nil
}
