package enums

import "fmt"

// Role represents a platform-level permissions role. A user holds exactly one.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleStoreOwner Role = "store_owner"
)

var validRoles = []Role{
	RoleAdmin,
	RoleUser,
	RoleStoreOwner,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanRate reports whether the role may submit store ratings. Store owners are
// excluded to avoid a conflict of interest with their own listing.
func (r Role) CanRate() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
