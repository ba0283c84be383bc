package repositories

import (
	"context"
	"errors"
	"time"

	appContext "labventory/internal/context"
	"labventory/internal/database"
	"labventory/internal/events"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	Equipment      EquipmentRepository
	Chemical       ChemicalRepository
	CheckInOut     CheckInOutRepository
	Maintenance    MaintenanceRepository
	UserProfile    UserProfileRepository
	UserCredential UserCredentialRepository
}

// New wires every repository. bus may be nil, in which case writes are not announced.
func New(db database.DB, bus *events.EventBus) Repository {
	return Repository{
		Equipment:      NewEquipmentRepository(db, bus),
		Chemical:       NewChemicalRepository(db, bus),
		CheckInOut:     NewCheckInOutRepository(bus),
		Maintenance:    NewMaintenanceRepository(bus),
		UserProfile:    NewUserProfileRepository(db, bus),
		UserCredential: NewUserCredentialRepository(),
	}
}

// lookupError maps gorm's not-found onto ErrNotFound without logging it as a failure
func lookupError(log logger.Logger, msg string, err error, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Debug(msg, args...)
		return ErrNotFound
	}
	return log.Err(msg, err, args...)
}

// publishChange announces a write once the surrounding transaction commits
func publishChange(
	ctx context.Context,
	bus *events.EventBus,
	channel events.Channel,
	eventType events.EventType,
	id uuid.UUID,
	record any,
) {
	if bus == nil {
		return
	}

	userID := appContext.GetUserID(ctx)
	appContext.AfterCommit(ctx, func() {
		if err := bus.PublishChange(channel, eventType, id, record, userID); err != nil {
			logger.New("repositories").
				Function("publishChange").
				Warn("failed to publish change", "channel", channel, "id", id, "error", err)
		}
	})
}

// cacheGet only reads outside a transaction so uncommitted rows never leak into the cache
func cacheGet[T any](
	ctx context.Context,
	cache database.CacheClient,
	prefix string,
	id uuid.UUID,
) (*T, bool) {
	if cache == nil {
		return nil, false
	}
	if _, inTx := appContext.GetTransaction(ctx); inTx {
		return nil, false
	}

	var value T
	found, err := database.NewCacheBuilder(cache, id).WithHash(prefix).WithContext(ctx).Get(&value)
	if err != nil || !found {
		return nil, false
	}
	return &value, true
}

func cacheSet(
	ctx context.Context,
	cache database.CacheClient,
	prefix string,
	id uuid.UUID,
	value any,
	ttl time.Duration,
) {
	if cache == nil {
		return
	}
	if _, inTx := appContext.GetTransaction(ctx); inTx {
		return
	}

	if err := database.NewCacheBuilder(cache, id).
		WithHash(prefix).
		WithStruct(value).
		WithTTL(ttl).
		WithContext(ctx).
		Set(); err != nil {
		logger.New("repositories").
			Function("cacheSet").
			Warn("failed to cache record", "prefix", prefix, "id", id, "error", err)
	}
}

// cacheInvalidate drops the cached record after commit
func cacheInvalidate(ctx context.Context, cache database.CacheClient, prefix string, id uuid.UUID) {
	if cache == nil {
		return
	}

	appContext.AfterCommit(ctx, func() {
		if err := database.NewCacheBuilder(cache, id).WithHash(prefix).Delete(); err != nil {
			logger.New("repositories").
				Function("cacheInvalidate").
				Warn("failed to invalidate cache", "prefix", prefix, "id", id, "error", err)
		}
	})
}
