package auth

import (
	"github.com/dvellmar/storeratings-backend/internal/users"
)

// RegisterRequest captures the public signup payload.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=64"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the token and user produced by register or login.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}
