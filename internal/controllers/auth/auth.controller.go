package authController

import (
	"context"

	"labventory/internal/services"
	"labventory/pkg/logger"
)

// AuthController fronts sign-up and sign-in
type AuthController struct {
	authService *services.AuthService
	log         logger.Logger
}

type AuthControllerInterface interface {
	SignUp(ctx context.Context, request *services.SignUpRequest) (*services.Session, error)
	SignIn(ctx context.Context, request *services.SignInRequest) (*services.Session, error)
}

func New(services services.Service) AuthControllerInterface {
	return &AuthController{
		authService: services.Auth,
		log:         logger.New("authController"),
	}
}

func (ac *AuthController) SignUp(
	ctx context.Context,
	request *services.SignUpRequest,
) (*services.Session, error) {
	log := ac.log.Function("SignUp")

	session, err := ac.authService.SignUp(ctx, *request)
	if err != nil {
		return nil, err
	}

	log.Debug("Session issued", "userID", session.User.ID)
	return session, nil
}

func (ac *AuthController) SignIn(
	ctx context.Context,
	request *services.SignInRequest,
) (*services.Session, error) {
	log := ac.log.Function("SignIn")

	session, err := ac.authService.SignIn(ctx, *request)
	if err != nil {
		return nil, err
	}

	log.Debug("User signed in", "userID", session.User.ID)
	return session, nil
}
