package repositories

import (
	"context"
	"strings"

	. "labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserCredentialRepository interface {
	Create(ctx context.Context, tx *gorm.DB, credential *UserCredential) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*UserCredential, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type userCredentialRepository struct{}

func NewUserCredentialRepository() UserCredentialRepository {
	return &userCredentialRepository{}
}

func (r *userCredentialRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	credential *UserCredential,
) error {
	log := logger.NewWithContext(ctx, "userCredentialRepository").Function("Create")

	if err := tx.WithContext(ctx).Create(credential).Error; err != nil {
		return log.Err("failed to create credential", err, "email", credential.Email)
	}
	return nil
}

func (r *userCredentialRepository) GetByEmail(
	ctx context.Context,
	tx *gorm.DB,
	email string,
) (*UserCredential, error) {
	log := logger.NewWithContext(ctx, "userCredentialRepository").Function("GetByEmail")

	var credential UserCredential
	if err := tx.WithContext(ctx).
		First(&credential, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, lookupError(log, "failed to get credential", err, "email", email)
	}
	return &credential, nil
}

func (r *userCredentialRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := logger.NewWithContext(ctx, "userCredentialRepository").Function("Delete")

	if err := tx.WithContext(ctx).Delete(&UserCredential{}, "id = ?", id).Error; err != nil {
		return log.Err("failed to delete credential", err, "userID", id)
	}
	return nil
}
