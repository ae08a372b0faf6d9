package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/security"
)

// Service defines the self-service profile behavior needed by the controller.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type service struct {
	users       userRepository
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	UserRepo       userRepository
	PasswordConfig config.PasswordConfig
}

// NewService constructs a profile service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		fields["name"] = name
		user.Name = name
	}
	if req.Address != nil {
		addr := strings.TrimSpace(*req.Address)
		fields["address"] = addr
		user.Address = &addr
	}
	if len(fields) == 0 {
		return FromModel(user), nil
	}

	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist password")
	}
	return nil
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}
