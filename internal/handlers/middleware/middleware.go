package middleware

import (
	"context"

	"labventory/config"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/pkg/logger"
)

// Authenticator resolves a bearer token to the caller's current profile
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserProfile, error)
}

type Middleware struct {
	DB     database.DB
	auth   Authenticator
	Config config.Config
	log    logger.Logger
}

func New(db database.DB, config config.Config, auth Authenticator) Middleware {
	log := logger.New("middleware")

	return Middleware{
		DB:     db,
		auth:   auth,
		Config: config,
		log:    log,
	}
}
