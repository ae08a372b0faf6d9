package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

const recentRatingsLimit = 5

// Service defines the store browse and profile behavior needed by controllers.
type Service interface {
	List(ctx context.Context, params ListParams, requesterID *uuid.UUID) (*ListResult, error)
	GetByID(ctx context.Context, storeID uuid.UUID, requesterID *uuid.UUID) (*StoreDetailDTO, error)
	Update(ctx context.Context, actor pkgauth.Actor, storeID uuid.UUID, req UpdateStoreRequest) (*StoreDTO, error)
	OwnerDashboard(ctx context.Context, ownerID uuid.UUID) (*OwnerDashboardDTO, error)
	OwnerRatings(ctx context.Context, ownerID uuid.UUID, page pagination.Params) (*RatingsResult, error)
}

type storeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
	List(ctx context.Context, params ListParams, requesterID *uuid.UUID) ([]StoreWithUserRating, int64, error)
	UserRatingFor(ctx context.Context, storeID, userID uuid.UUID) (*int, error)
	RecentRatings(ctx context.Context, storeID uuid.UUID, limit int) ([]RatingEntry, error)
	RatingsPage(ctx context.Context, storeID uuid.UUID, offset, limit int) ([]RatingEntry, int64, error)
	RatingDistribution(ctx context.Context, storeID uuid.UUID) (map[int]int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type ownerLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	stores storeRepository
	owners ownerLookup
}

// ServiceParams bundles the dependencies required to build a stores service.
type ServiceParams struct {
	StoreRepo storeRepository
	UserRepo  ownerLookup
}

// NewService constructs a stores service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{stores: params.StoreRepo, owners: params.UserRepo}, nil
}

func (s *service) List(ctx context.Context, params ListParams, requesterID *uuid.UUID) (*ListResult, error) {
	if err := validateRatingRange(params); err != nil {
		return nil, err
	}

	rows, total, err := s.stores.List(ctx, params, requesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}

	dtos := make([]StoreDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, fromRow(row))
	}
	return &ListResult{
		Stores: dtos,
		Meta:   pagination.NewMeta(params.Page, total),
	}, nil
}

func (s *service) GetByID(ctx context.Context, storeID uuid.UUID, requesterID *uuid.UUID) (*StoreDetailDTO, error) {
	store, err := s.findStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	detail := &StoreDetailDTO{StoreDTO: FromModel(store)}

	if requesterID != nil {
		rating, err := s.stores.UserRatingFor(ctx, storeID, *requesterID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user rating")
		}
		detail.UserRating = rating
	}

	if owner, err := s.owners.FindByID(ctx, store.OwnerID); err == nil {
		detail.Owner = &OwnerSummary{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner")
	}

	recent, err := s.stores.RecentRatings(ctx, storeID, recentRatingsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent ratings")
	}
	detail.RecentRatings = recent

	return detail, nil
}

func (s *service) Update(ctx context.Context, actor pkgauth.Actor, storeID uuid.UUID, req UpdateStoreRequest) (*StoreDTO, error) {
	store, err := s.findStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && store.OwnerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the store owner")
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		fields["name"] = name
		store.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		fields["email"] = email
		store.Email = email
	}
	if req.Address != nil {
		addr := strings.TrimSpace(*req.Address)
		fields["address"] = addr
		store.Address = addr
	}
	if len(fields) == 0 {
		dto := FromModel(store)
		return &dto, nil
	}

	if err := s.stores.UpdateFields(ctx, storeID, fields); err != nil {
		if db.IsUniqueViolation(err, "uq_stores_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "store email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
	}

	dto := FromModel(store)
	return &dto, nil
}

func (s *service) OwnerDashboard(ctx context.Context, ownerID uuid.UUID) (*OwnerDashboardDTO, error) {
	store, err := s.findOwnedStore(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	dist, err := s.stores.RatingDistribution(ctx, store.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load distribution")
	}

	return &OwnerDashboardDTO{
		Store:        FromModel(store),
		Distribution: dist,
	}, nil
}

func (s *service) OwnerRatings(ctx context.Context, ownerID uuid.UUID, page pagination.Params) (*RatingsResult, error) {
	store, err := s.findOwnedStore(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	normalized := page.Normalize()
	entries, total, err := s.stores.RatingsPage(ctx, store.ID, page.Offset(), normalized.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ratings")
	}

	return &RatingsResult{
		Ratings: entries,
		Meta:    pagination.NewMeta(page, total),
	}, nil
}

func (s *service) findStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return store, nil
}

func (s *service) findOwnedStore(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	store, err := s.stores.FindByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no store registered for this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return store, nil
}

func validateRatingRange(params ListParams) error {
	check := func(v *float64) error {
		if v != nil && (*v < 0 || *v > 5) {
			return pkgerrors.New(pkgerrors.CodeValidation, "rating filter must be between 0 and 5")
		}
		return nil
	}
	if err := check(params.MinRating); err != nil {
		return err
	}
	if err := check(params.MaxRating); err != nil {
		return err
	}
	if params.MinRating != nil && params.MaxRating != nil && *params.MinRating > *params.MaxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, "min rating exceeds max rating")
	}
	return nil
}
