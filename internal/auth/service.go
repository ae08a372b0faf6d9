package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/internal/users"
	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/security"
)

// A single message for unknown email and bad password keeps account
// enumeration off the table.
const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type tokenMinter interface {
	Mint(userID uuid.UUID) (string, *pkgauth.Claims, error)
}

type sessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, remaining time.Duration) error
}

type service struct {
	users       userRepository
	tokens      tokenMinter
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	TokenManager   tokenMinter
	SessionManager sessionRevoker
	PasswordConfig config.PasswordConfig
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TokenManager == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:       params.UserRepo,
		tokens:      params.TokenManager,
		sessions:    params.SessionManager,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates a normal user account. Role is never caller-controlled
// here; privileged accounts come from the admin service.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Address:      req.Address,
		Role:         enums.RoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return s.issueToken(user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueToken(user)
}

// Logout denylists the token until its natural expiry.
func (s *service) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := s.sessions.Revoke(ctx, tokenID, time.Until(expiresAt)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke token")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

func (s *service) issueToken(user *models.User) (*AuthResponse, error) {
	token, _, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
