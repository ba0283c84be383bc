package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"labventory/config"
	"labventory/internal/authz"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	PasswordHashCost  = bcrypt.DefaultCost
	MinPasswordLength = 6
	tokenIssuer       = "labventory"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// TokenClaims are the session claims. Subject carries the user id.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Session struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      *models.UserProfile `json:"user"`
}

type SignUpRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=6"`
	DisplayName string `json:"displayName"`
}

type SignInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthService struct {
	db          database.DB
	repos       repositories.Repository
	transaction *TransactionService
	secret      []byte
	expiry      time.Duration
	now         func() time.Time
	log         logger.Logger
}

func NewAuthService(
	db database.DB,
	repos repositories.Repository,
	transaction *TransactionService,
	config config.Config,
) *AuthService {
	return &AuthService{
		db:          db,
		repos:       repos,
		transaction: transaction,
		secret:      []byte(config.JWTSecret),
		expiry:      config.JWTExpiry,
		now:         time.Now,
		log:         logger.New("AuthService"),
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SignUp stores the credential and a student profile under one id, then opens a session
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	log := logger.NewWithContext(ctx, "AuthService").Function("SignUp")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, log.Err("failed to hash password", err)
	}

	var profile *models.UserProfile
	err = s.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		_, lookupErr := s.repos.UserCredential.GetByEmail(txCtx, tx, email)
		if lookupErr == nil {
			return ErrEmailTaken
		}
		if !errors.Is(lookupErr, repositories.ErrNotFound) {
			return lookupErr
		}

		credential := &models.UserCredential{Email: email, PasswordHash: hash}
		if err := s.repos.UserCredential.Create(txCtx, tx, credential); err != nil {
			return err
		}

		assigned, err := s.repos.UserProfile.Assign(txCtx, tx, credential.ID, email, authz.DefaultRole)
		if err != nil {
			return err
		}

		if name := strings.TrimSpace(req.DisplayName); name != "" {
			if err := s.repos.UserProfile.SetDisplayName(txCtx, tx, credential.ID, name); err != nil {
				return err
			}
			assigned.DisplayName = &name
		}

		profile = assigned
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, log.Err("failed to sign up", err, "email", email)
	}

	log.Info("User signed up", "userID", profile.ID, "role", profile.Role)
	return s.issue(profile)
}

// SignIn verifies the password and returns a session. A credential without a
// profile gets a student profile on the spot.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	log := logger.NewWithContext(ctx, "AuthService").Function("SignIn")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	credential, err := s.repos.UserCredential.GetByEmail(ctx, s.db.SQL, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Info("unknown email", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(req.Password)); err != nil {
		log.Info("password mismatch", "userID", credential.ID)
		return nil, ErrInvalidCredentials
	}

	profile, err := s.repos.UserProfile.GetByID(ctx, s.db.SQL, credential.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info("creating missing profile", "userID", credential.ID)
		profile, err = s.repos.UserProfile.Assign(ctx, s.db.SQL, credential.ID, email, authz.DefaultRole)
	}
	if err != nil {
		return nil, log.Err("failed to load profile", err, "userID", credential.ID)
	}

	return s.issue(profile)
}

func (s *AuthService) issue(profile *models.UserProfile) (*Session, error) {
	token, expiresAt, err := s.IssueToken(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: profile}, nil
}

func (s *AuthService) IssueToken(userID uuid.UUID, email string) (string, time.Time, error) {
	log := s.log.Function("IssueToken")

	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, log.Err("failed to sign token", err, "userID", userID)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature and expiry and returns the user id and claims
func (s *AuthService) ParseToken(tokenString string) (uuid.UUID, *TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, claims, nil
}

// Authenticate resolves a bearer token to the caller's current profile
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.UserProfile, error) {
	userID, _, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	return s.repos.UserProfile.GetByID(ctx, s.db.SQL, userID)
}

// DeleteUser removes both the profile and the credential
func (s *AuthService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.transaction.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if err := s.repos.UserProfile.Delete(txCtx, tx, userID); err != nil {
			return err
		}
		return s.repos.UserCredential.Delete(txCtx, tx, userID)
	})
}
