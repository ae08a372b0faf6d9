package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/internal/media"
	"github.com/dvellmar/storeratings-backend/internal/ratings"
	"github.com/dvellmar/storeratings-backend/internal/stores"
	"github.com/dvellmar/storeratings-backend/internal/users"
	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
	"github.com/dvellmar/storeratings-backend/pkg/security"
	"github.com/dvellmar/storeratings-backend/pkg/storage/gcs"
)

// Service defines the admin mutation and reporting surface.
type Service interface {
	Dashboard(ctx context.Context) (*DashboardMetrics, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*users.UserDTO, error)
	CreateStore(ctx context.Context, req CreateStoreRequest) (*CreateStoreResponse, error)
	UpdateUser(ctx context.Context, targetID uuid.UUID, req UpdateUserRequest) (*users.UserDTO, error)
	ChangeRole(ctx context.Context, targetID uuid.UUID, req ChangeRoleRequest) (*users.UserDTO, error)
	DeleteUser(ctx context.Context, targetID uuid.UUID) (*DeleteUserResult, error)
	ListUsers(ctx context.Context, params ListUsersParams) (*ListUsersResult, error)
}

type service struct {
	db          *db.Client
	objects     gcs.ObjectStore
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// ServiceParams bundles the dependencies required to build an admin service.
type ServiceParams struct {
	DB             *db.Client
	ObjectStore    gcs.ObjectStore
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// NewService constructs an admin service with the provided dependencies.
// ObjectStore may be nil; media cleanup on the asset host is then skipped.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{
		db:          params.DB,
		objects:     params.ObjectStore,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	conn := s.db.DB()
	userRepo := users.NewRepository(conn)
	storeRepo := stores.NewRepository(conn)
	ratingRepo := ratings.NewRepository(conn)

	totalUsers, err := userRepo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	totalStores, err := storeRepo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count stores")
	}
	totalRatings, err := ratingRepo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count ratings")
	}
	byRole, err := userRepo.CountByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count roles")
	}

	usersByRole := make(map[string]int64, len(byRole))
	for role, count := range byRole {
		usersByRole[role.String()] = count
	}
	return &DashboardMetrics{
		TotalUsers:   totalUsers,
		TotalStores:  totalStores,
		TotalRatings: totalRatings,
		UsersByRole:  usersByRole,
	}, nil
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*users.UserDTO, error) {
	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := users.NewRepository(s.db.DB()).Create(ctx, users.CreateUserDTO{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Address:      req.Address,
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

// CreateStore validates in a fixed order so callers get stable error codes:
// duplicate store email, missing owner, wrong owner role, owner already bound.
func (s *service) CreateStore(ctx context.Context, req CreateStoreRequest) (*CreateStoreResponse, error) {
	var response *CreateStoreResponse
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		storeRepo := stores.NewRepository(tx)

		email := normalizeEmail(req.Email)
		if _, err := storeRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "store email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check store email")
		}

		owner, err := userRepo.FindByID(ctx, req.OwnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
		}
		if owner.Role != enums.RoleStoreOwner {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "owner must hold the store_owner role")
		}

		if _, err := storeRepo.FindByOwnerID(ctx, owner.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "owner already has a store")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check owner store")
		}

		store, err := storeRepo.Create(ctx, stores.CreateStoreDTO{
			Name:    strings.TrimSpace(req.Name),
			Email:   email,
			Address: strings.TrimSpace(req.Address),
			OwnerID: owner.ID,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "uq_stores_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "store email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}

		response = &CreateStoreResponse{
			Store: stores.FromModel(store),
			Owner: stores.OwnerSummary{ID: owner.ID, Name: owner.Name, Email: owner.Email},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (s *service) UpdateUser(ctx context.Context, targetID uuid.UUID, req UpdateUserRequest) (*users.UserDTO, error) {
	userRepo := users.NewRepository(s.db.DB())

	target, err := s.findUser(ctx, userRepo, targetID)
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
		target.Name = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		fields["email"] = email
		target.Email = email
	}
	if req.Address != nil {
		addr := strings.TrimSpace(*req.Address)
		fields["address"] = addr
		target.Address = &addr
	}
	if len(fields) == 0 {
		return users.FromModel(target), nil
	}

	if err := userRepo.UpdateFields(ctx, targetID, fields); err != nil {
		if db.IsUniqueViolation(err, "uq_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	return users.FromModel(target), nil
}

// ChangeRole reassigns a user's role. Admin accounts are frozen, no-ops are
// rejected, and a store owner with a live store cannot lose the role out from
// under it.
func (s *service) ChangeRole(ctx context.Context, targetID uuid.UUID, req ChangeRoleRequest) (*users.UserDTO, error) {
	newRole, err := enums.ParseRole(req.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	var updated *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		storeRepo := stores.NewRepository(tx)

		target, err := s.findUser(ctx, userRepo, targetID)
		if err != nil {
			return err
		}
		if target.Role == enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "admin roles cannot be changed")
		}
		if target.Role == newRole {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already holds this role")
		}
		if target.Role == enums.RoleStoreOwner {
			if _, err := storeRepo.FindByOwnerID(ctx, target.ID); err == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "owner still has a store; delete it first")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check owner store")
			}
		}

		if err := userRepo.UpdateFields(ctx, targetID, map[string]any{"role": newRole}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
		}
		target.Role = newRole
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(updated), nil
}

// DeleteUser removes the target and everything hanging off them in one
// transaction. Admins cannot be deleted.
func (s *service) DeleteUser(ctx context.Context, targetID uuid.UUID) (*DeleteUserResult, error) {
	var result *DeleteUserResult
	var objectKeys []string

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		storeRepo := stores.NewRepository(tx)
		ratingRepo := ratings.NewRepository(tx)
		mediaRepo := media.NewRepository(tx)

		target, err := s.findUser(ctx, userRepo, targetID)
		if err != nil {
			return err
		}
		if target.Role == enums.RoleAdmin {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "admin accounts cannot be deleted")
		}

		ratingsDeleted, err := ratingRepo.DeleteByUser(ctx, targetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete authored ratings")
		}

		storeDeleted := false
		var mediaDeleted int64
		if target.Role == enums.RoleStoreOwner {
			store, err := storeRepo.FindByOwnerID(ctx, targetID)
			switch {
			case err == nil:
				keys, removed, err := mediaRepo.DeleteByStore(ctx, store.ID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete store media")
				}
				objectKeys = keys
				mediaDeleted = removed

				if _, err := ratingRepo.DeleteByStore(ctx, store.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete store ratings")
				}
				if err := storeRepo.Delete(ctx, store.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete store")
				}
				storeDeleted = true
			case errors.Is(err, gorm.ErrRecordNotFound):
				// owner without a store yet
			default:
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner store")
			}
		}

		if err := userRepo.Delete(ctx, targetID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}

		result = &DeleteUserResult{
			DeletedUser:       users.FromModel(target),
			RatingsDeleted:    ratingsDeleted,
			StoreDeleted:      storeDeleted,
			StoreMediaDeleted: mediaDeleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Asset host cleanup happens after commit; failures only get logged.
	if s.objects != nil {
		for _, key := range objectKeys {
			if err := s.objects.DeleteObject(ctx, key); err != nil && s.logg != nil {
				s.logg.Warn(ctx, "store media object deletion failed on host")
			}
		}
	}
	return result, nil
}

func (s *service) ListUsers(ctx context.Context, params ListUsersParams) (*ListUsersResult, error) {
	conn := s.db.DB()
	userRepo := users.NewRepository(conn)
	storeRepo := stores.NewRepository(conn)

	var role enums.Role
	if params.Role != "" {
		parsed, err := enums.ParseRole(params.Role)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
		}
		role = parsed
	}

	page := params.Page.Normalize()
	rows, total, err := userRepo.List(ctx, users.ListQuery{
		Search: params.Search,
		Role:   role,
		SortBy: params.SortBy,
		Order:  params.Order,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	out := make([]UserWithStore, 0, len(rows))
	for i := range rows {
		entry := UserWithStore{User: users.FromModel(&rows[i])}
		if rows[i].Role == enums.RoleStoreOwner {
			if store, err := storeRepo.FindByOwnerID(ctx, rows[i].ID); err == nil {
				dto := stores.FromModel(store)
				entry.Store = &dto
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner store")
			}
		}
		out = append(out, entry)
	}

	return &ListUsersResult{
		Users: out,
		Meta:  pagination.NewMeta(params.Page, total),
	}, nil
}

func (s *service) findUser(ctx context.Context, repo *users.Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
