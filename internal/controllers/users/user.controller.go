package userController

import (
	"context"

	"labventory/config"
	"labventory/internal/authz"
	"labventory/internal/database"
	. "labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/pkg/logger"

	"github.com/google/uuid"
)

type UserController struct {
	userProfileRepo repositories.UserProfileRepository
	authService     *services.AuthService
	db              database.DB
	Config          config.Config
	log             logger.Logger
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type UserControllerInterface interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	List(ctx context.Context) ([]*UserProfile, error)
	ChangeRole(
		ctx context.Context,
		actor *UserProfile,
		userID uuid.UUID,
		request *ChangeRoleRequest,
	) (*UserProfile, error)
	Delete(ctx context.Context, actor *UserProfile, userID uuid.UUID) error
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) UserControllerInterface {
	return &UserController{
		userProfileRepo: repos.UserProfile,
		authService:     services.Auth,
		db:              db,
		Config:          config,
		log:             logger.New("userController"),
	}
}

func (uc *UserController) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return uc.userProfileRepo.GetByID(ctx, uc.db.SQL, userID)
}

func (uc *UserController) List(ctx context.Context) ([]*UserProfile, error) {
	log := uc.log.Function("List")

	profiles, err := uc.userProfileRepo.List(ctx, uc.db.SQL)
	if err != nil {
		return nil, log.Err("failed to list user profiles", err)
	}
	return profiles, nil
}

// ChangeRole takes effect on the target's next request since the middleware
// reloads the profile every time
func (uc *UserController) ChangeRole(
	ctx context.Context,
	actor *UserProfile,
	userID uuid.UUID,
	request *ChangeRoleRequest,
) (*UserProfile, error) {
	log := uc.log.Function("ChangeRole")

	role, err := authz.ParseRole(request.Role)
	if err != nil {
		return nil, err
	}

	profile, err := uc.userProfileRepo.ChangeRole(ctx, uc.db.SQL, userID, role)
	if err != nil {
		return nil, err
	}

	log.Info("Role changed", "userID", userID, "role", role, "changedBy", actor.ID)
	return profile, nil
}

func (uc *UserController) Delete(ctx context.Context, actor *UserProfile, userID uuid.UUID) error {
	log := uc.log.Function("Delete")

	if err := uc.authService.DeleteUser(ctx, userID); err != nil {
		return err
	}

	log.Info("User deleted", "userID", userID, "deletedBy", actor.ID)
	return nil
}
