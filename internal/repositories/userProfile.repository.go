package repositories

import (
	"context"
	"strings"

	"labventory/internal/authz"
	"labventory/internal/constants"
	"labventory/internal/database"
	"labventory/internal/events"
	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProfileRepository interface {
	Assign(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		email string,
		role authz.Role,
	) (*UserProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*UserProfile, error)
	List(ctx context.Context, tx *gorm.DB) ([]*UserProfile, error)
	ChangeRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role authz.Role) (*UserProfile, error)
	SetDisplayName(ctx context.Context, tx *gorm.DB, id uuid.UUID, displayName string) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type userProfileRepository struct {
	db  database.DB
	bus *events.EventBus
}

func NewUserProfileRepository(db database.DB, bus *events.EventBus) UserProfileRepository {
	return &userProfileRepository{db: db, bus: bus}
}

// Assign writes the profile for id with permissions expanded from role. An
// empty role falls back to the default. Repeated calls overwrite the profile.
func (r *userProfileRepository) Assign(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	email string,
	role authz.Role,
) (*UserProfile, error) {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("Assign")

	if role == "" {
		role = authz.DefaultRole
	}
	if !role.Valid() {
		return nil, authz.ErrInvalidRole
	}

	profile := NewUserProfile(id, email, role)
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"email", "role", "permissions", "updated_at"},
		),
	}).Create(profile).Error; err != nil {
		return nil, log.Err("failed to assign role", err, "userID", id, "role", role)
	}

	// an upsert keeps the stored created_at, so hand back the row as stored
	if err := tx.WithContext(ctx).First(profile, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to reload assigned profile", err, "userID", id)
	}

	cacheInvalidate(ctx, r.db.Cache.User, constants.UserCachePrefix, id)
	publishChange(ctx, r.bus, events.USERS_CHANNEL, events.UPDATED, id, profile)
	return profile, nil
}

// GetByID is cache aside so the auth middleware can reload the profile on every request
func (r *userProfileRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*UserProfile, error) {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("GetByID")

	if cached, ok := cacheGet[UserProfile](ctx, r.db.Cache.User, constants.UserCachePrefix, id); ok {
		return cached, nil
	}

	var profile UserProfile
	if err := tx.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to get user profile", err, "userID", id)
	}

	cacheSet(ctx, r.db.Cache.User, constants.UserCachePrefix, id, &profile, constants.UserCacheExpiry)
	return &profile, nil
}

func (r *userProfileRepository) List(ctx context.Context, tx *gorm.DB) ([]*UserProfile, error) {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("List")

	var profiles []*UserProfile
	if err := tx.WithContext(ctx).Order("email ASC").Find(&profiles).Error; err != nil {
		return nil, log.Err("failed to list user profiles", err)
	}
	return profiles, nil
}

// ChangeRole recomputes the permission snapshot and drops the cached profile
func (r *userProfileRepository) ChangeRole(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	role authz.Role,
) (*UserProfile, error) {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("ChangeRole")

	if !role.Valid() {
		return nil, authz.ErrInvalidRole
	}

	var profile UserProfile
	if err := tx.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, lookupError(log, "failed to load user profile", err, "userID", id)
	}

	profile.ApplyRole(role)
	if err := tx.WithContext(ctx).Model(&profile).Updates(map[string]any{
		"role":        profile.Role,
		"permissions": profile.Permissions,
	}).Error; err != nil {
		return nil, log.Err("failed to change role", err, "userID", id, "role", role)
	}

	cacheInvalidate(ctx, r.db.Cache.User, constants.UserCachePrefix, id)
	publishChange(ctx, r.bus, events.USERS_CHANNEL, events.UPDATED, id, &profile)
	return &profile, nil
}

func (r *userProfileRepository) SetDisplayName(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	displayName string,
) error {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("SetDisplayName")

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil
	}

	if err := tx.WithContext(ctx).
		Model(&UserProfile{}).
		Where("id = ?", id).
		Update("display_name", displayName).Error; err != nil {
		return log.Err("failed to set display name", err, "userID", id)
	}

	cacheInvalidate(ctx, r.db.Cache.User, constants.UserCachePrefix, id)
	return nil
}

func (r *userProfileRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "userProfileRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&UserProfile{}, "id = ?", id)
	if result.Error != nil {
		return log.Err("failed to delete user profile", result.Error, "userID", id)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	cacheInvalidate(ctx, r.db.Cache.User, constants.UserCachePrefix, id)
	publishChange(ctx, r.bus, events.USERS_CHANNEL, events.DELETED, id, nil)
	return nil
}
