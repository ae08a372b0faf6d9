package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service defines rating mutations and reads.
type Service interface {
	Submit(ctx context.Context, actor pkgauth.Actor, req SubmitRequest) (*SubmitResponse, error)
	Update(ctx context.Context, actor pkgauth.Actor, ratingID uuid.UUID, req UpdateRequest) (*SubmitResponse, error)
	Delete(ctx context.Context, actor pkgauth.Actor, ratingID uuid.UUID) error
	ListForUser(ctx context.Context, actor pkgauth.Actor, targetUserID uuid.UUID, page pagination.Params) (*UserRatingsResult, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, page pagination.Params) (*StoreRatingsResult, error)
}

type service struct {
	repo   Repository
	stores storeLookup
	tx     txRunner
}

// ServiceParams bundles the dependencies required to build a ratings service.
type ServiceParams struct {
	RatingRepo Repository
	StoreRepo  storeLookup
	TxRunner   txRunner
}

// NewService constructs a ratings service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.RatingRepo == nil {
		return nil, fmt.Errorf("rating repository is required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	return &service{
		repo:   params.RatingRepo,
		stores: params.StoreRepo,
		tx:     params.TxRunner,
	}, nil
}

// Submit records a new rating and refreshes the store aggregate in one
// transaction. The (user, store) unique index is the last word on duplicates.
func (s *service) Submit(ctx context.Context, actor pkgauth.Actor, req SubmitRequest) (*SubmitResponse, error) {
	if err := validateValue(req.Value); err != nil {
		return nil, err
	}
	if !actor.Role.CanRate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store owners cannot submit ratings")
	}

	if _, err := s.stores.FindByID(ctx, req.StoreID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	rating := &models.Rating{
		UserID:  actor.UserID,
		StoreID: req.StoreID,
		Value:   req.Value,
	}

	var average decimal.Decimal
	var total int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, rating); err != nil {
			return err
		}
		avg, count, err := repo.RecomputeStoreAggregate(ctx, req.StoreID)
		if err != nil {
			return err
		}
		average, total = avg, count
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_ratings_user_store") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "store already rated by this user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit rating")
	}

	return &SubmitResponse{
		Rating:       fromModel(rating),
		StoreAverage: average,
		StoreTotal:   total,
	}, nil
}

func (s *service) Update(ctx context.Context, actor pkgauth.Actor, ratingID uuid.UUID, req UpdateRequest) (*SubmitResponse, error) {
	if err := validateValue(req.Value); err != nil {
		return nil, err
	}

	rating, err := s.findOwnedRating(ctx, actor, ratingID)
	if err != nil {
		return nil, err
	}

	var average decimal.Decimal
	var total int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateValue(ctx, ratingID, req.Value); err != nil {
			return err
		}
		avg, count, err := repo.RecomputeStoreAggregate(ctx, rating.StoreID)
		if err != nil {
			return err
		}
		average, total = avg, count
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update rating")
	}

	rating.Value = req.Value
	return &SubmitResponse{
		Rating:       fromModel(rating),
		StoreAverage: average,
		StoreTotal:   total,
	}, nil
}

func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, ratingID uuid.UUID) error {
	rating, err := s.findOwnedRating(ctx, actor, ratingID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, ratingID); err != nil {
			return err
		}
		_, _, err := repo.RecomputeStoreAggregate(ctx, rating.StoreID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete rating")
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, actor pkgauth.Actor, targetUserID uuid.UUID, page pagination.Params) (*UserRatingsResult, error) {
	if actor.UserID != targetUserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another user's ratings")
	}

	normalized := page.Normalize()
	rows, total, err := s.repo.ListForUser(ctx, targetUserID, page.Offset(), normalized.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ratings")
	}
	return &UserRatingsResult{
		Ratings: rows,
		Meta:    pagination.NewMeta(page, total),
	}, nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, page pagination.Params) (*StoreRatingsResult, error) {
	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	normalized := page.Normalize()
	rows, total, err := s.repo.ListForStore(ctx, storeID, page.Offset(), normalized.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ratings")
	}
	return &StoreRatingsResult{
		Ratings: rows,
		Meta:    pagination.NewMeta(page, total),
	}, nil
}

func (s *service) findOwnedRating(ctx context.Context, actor pkgauth.Actor, ratingID uuid.UUID) (*models.Rating, error) {
	rating, err := s.repo.FindByID(ctx, ratingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rating not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating")
	}
	if rating.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rating belongs to another user")
	}
	return rating, nil
}

func validateValue(value int) error {
	if value < 1 || value > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating value must be between 1 and 5")
	}
	return nil
}
