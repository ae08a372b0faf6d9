package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload minted for authenticated sessions. The subject is
// always the user ID; role is resolved from the database on every request so a
// role change takes effect without reissuing tokens.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}
