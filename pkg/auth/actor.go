package auth

import (
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated principal attached to a request. Role comes from
// the persisted user row, not from token claims.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}
