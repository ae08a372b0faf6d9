package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Address   *string    `json:"address,omitempty"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Address      *string
	Role         enums.Role
}

// UpdateProfileRequest carries the self-service profile fields.
type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=100"`
	Address *string `json:"address" validate:"omitempty,max=400"`
}

// ChangePasswordRequest carries a password rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=64"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.RoleUser
	}
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Address:      c.Address,
		Role:         role,
	}
}
