package admin

import (
	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/internal/stores"
	"github.com/dvellmar/storeratings-backend/internal/users"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

// CreateUserRequest is the admin payload for provisioning an account with any
// role.
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=64"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
	Role     string  `json:"role" validate:"required,oneof=admin user store_owner"`
}

// CreateStoreRequest is the admin payload for registering a store.
type CreateStoreRequest struct {
	Name    string    `json:"name" validate:"required,min=2,max=120"`
	Email   string    `json:"email" validate:"required,email"`
	Address string    `json:"address" validate:"required,max=400"`
	OwnerID uuid.UUID `json:"owner_id" validate:"required"`
}

// UpdateUserRequest carries the partial fields an admin may change.
type UpdateUserRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=400"`
}

// ChangeRoleRequest carries a role reassignment.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user store_owner"`
}

// CreateStoreResponse returns the new store with its owner summary.
type CreateStoreResponse struct {
	Store stores.StoreDTO     `json:"store"`
	Owner stores.OwnerSummary `json:"owner"`
}

// DeleteUserResult reports the cascade delete postconditions.
type DeleteUserResult struct {
	DeletedUser       *users.UserDTO `json:"deleted_user"`
	RatingsDeleted    int64          `json:"ratings_deleted"`
	StoreDeleted      bool           `json:"store_deleted"`
	StoreMediaDeleted int64          `json:"store_media_deleted"`
}

// DashboardMetrics summarizes platform totals for the admin dashboard.
type DashboardMetrics struct {
	TotalUsers   int64            `json:"total_users"`
	TotalStores  int64            `json:"total_stores"`
	TotalRatings int64            `json:"total_ratings"`
	UsersByRole  map[string]int64 `json:"users_by_role"`
}

// ListUsersParams collects admin listing filters.
type ListUsersParams struct {
	Search string
	Role   string
	SortBy string
	Order  string
	Page   pagination.Params
}

// UserWithStore pairs a user with their store when they own one.
type UserWithStore struct {
	User  *users.UserDTO   `json:"user"`
	Store *stores.StoreDTO `json:"store,omitempty"`
}

// ListUsersResult is a page of admin user rows.
type ListUsersResult struct {
	Users []UserWithStore `json:"users"`
	Meta  pagination.Meta `json:"pagination"`
}
