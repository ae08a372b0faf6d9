package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgauth "github.com/dvellmar/storeratings-backend/pkg/auth"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

type stubRatingRepo struct {
	ratings    map[uuid.UUID]*models.Rating
	createErr  error
	average    decimal.Decimal
	total      int
	recomputes int
	forUser    []RatingWithStore
	forStore   []RatingWithRater
	listTotal  int64
}

func newStubRatingRepo() *stubRatingRepo {
	return &stubRatingRepo{ratings: map[uuid.UUID]*models.Rating{}}
}

func (s *stubRatingRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	if s.createErr != nil {
		return s.createErr
	}
	rating.ID = uuid.New()
	s.ratings[rating.ID] = rating
	return nil
}

func (s *stubRatingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	if r, ok := s.ratings[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRatingRepo) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	if r, ok := s.ratings[id]; ok {
		r.Value = value
	}
	return nil
}

func (s *stubRatingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.ratings, id)
	return nil
}

func (s *stubRatingRepo) RecomputeStoreAggregate(ctx context.Context, storeID uuid.UUID) (decimal.Decimal, int, error) {
	s.recomputes++
	return s.average, s.total, nil
}

func (s *stubRatingRepo) ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]RatingWithStore, int64, error) {
	return s.forUser, s.listTotal, nil
}

func (s *stubRatingRepo) ListForStore(ctx context.Context, storeID uuid.UUID, offset, limit int) ([]RatingWithRater, int64, error) {
	return s.forStore, s.listTotal, nil
}

func (s *stubRatingRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.ratings)), nil
}

func (s *stubRatingRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubRatingRepo) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubStoreLookup struct {
	stores map[uuid.UUID]*models.Store
}

func (s *stubStoreLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if st, ok := s.stores[id]; ok {
		return st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubRatingRepo, stores *stubStoreLookup) Service {
	t.Helper()
	if stores == nil {
		stores = &stubStoreLookup{stores: map[uuid.UUID]*models.Store{}}
	}
	svc, err := NewService(ServiceParams{RatingRepo: repo, StoreRepo: stores, TxRunner: stubTxRunner{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func userActor() pkgauth.Actor {
	return pkgauth.Actor{UserID: uuid.New(), Role: enums.RoleUser}
}

func seedStore() (*stubStoreLookup, uuid.UUID) {
	id := uuid.New()
	return &stubStoreLookup{stores: map[uuid.UUID]*models.Store{
		id: {ID: id, Name: "Corner Deli"},
	}}, id
}

func TestSubmitRejectsOutOfRangeValues(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), nil)

	for _, value := range []int{0, -3, 6, 100} {
		_, err := svc.Submit(context.Background(), userActor(), SubmitRequest{StoreID: uuid.New(), Value: value})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %d, got %v", value, err)
		}
	}
}

func TestSubmitForbiddenForStoreOwner(t *testing.T) {
	stores, storeID := seedStore()
	svc := newTestService(t, newStubRatingRepo(), stores)

	actor := pkgauth.Actor{UserID: uuid.New(), Role: enums.RoleStoreOwner}
	_, err := svc.Submit(context.Background(), actor, SubmitRequest{StoreID: storeID, Value: 4})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitUnknownStore(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), nil)

	_, err := svc.Submit(context.Background(), userActor(), SubmitRequest{StoreID: uuid.New(), Value: 4})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitDuplicateSurfacesConflict(t *testing.T) {
	stores, storeID := seedStore()
	repo := newStubRatingRepo()
	repo.createErr = errors.New(`duplicate key value violates unique constraint "uq_ratings_user_store"`)
	svc := newTestService(t, repo, stores)

	_, err := svc.Submit(context.Background(), userActor(), SubmitRequest{StoreID: storeID, Value: 4})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSubmitReturnsRefreshedAggregate(t *testing.T) {
	stores, storeID := seedStore()
	repo := newStubRatingRepo()
	repo.average = decimal.NewFromFloat(4.50)
	repo.total = 2
	svc := newTestService(t, repo, stores)

	actor := userActor()
	resp, err := svc.Submit(context.Background(), actor, SubmitRequest{StoreID: storeID, Value: 5})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !resp.StoreAverage.Equal(decimal.NewFromFloat(4.50)) || resp.StoreTotal != 2 {
		t.Fatalf("unexpected aggregate %s/%d", resp.StoreAverage, resp.StoreTotal)
	}
	if resp.Rating.UserID != actor.UserID || resp.Rating.Value != 5 {
		t.Fatalf("unexpected rating %+v", resp.Rating)
	}
	if repo.recomputes != 1 {
		t.Fatalf("expected one recompute, got %d", repo.recomputes)
	}
}

func TestUpdateOwnershipMismatch(t *testing.T) {
	repo := newStubRatingRepo()
	rating := &models.Rating{ID: uuid.New(), UserID: uuid.New(), StoreID: uuid.New(), Value: 3}
	repo.ratings[rating.ID] = rating
	svc := newTestService(t, repo, nil)

	_, err := svc.Update(context.Background(), userActor(), rating.ID, UpdateRequest{Value: 5})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateRecomputesAggregate(t *testing.T) {
	repo := newStubRatingRepo()
	actor := userActor()
	rating := &models.Rating{ID: uuid.New(), UserID: actor.UserID, StoreID: uuid.New(), Value: 3}
	repo.ratings[rating.ID] = rating
	repo.average = decimal.NewFromFloat(4.00)
	repo.total = 3
	svc := newTestService(t, repo, nil)

	resp, err := svc.Update(context.Background(), actor, rating.ID, UpdateRequest{Value: 5})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.Rating.Value != 5 {
		t.Fatalf("expected updated value, got %d", resp.Rating.Value)
	}
	if repo.recomputes != 1 {
		t.Fatalf("expected one recompute, got %d", repo.recomputes)
	}
}

func TestDeleteUnknownRating(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), nil)

	err := svc.Delete(context.Background(), userActor(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRecomputesAggregate(t *testing.T) {
	repo := newStubRatingRepo()
	actor := userActor()
	rating := &models.Rating{ID: uuid.New(), UserID: actor.UserID, StoreID: uuid.New(), Value: 3}
	repo.ratings[rating.ID] = rating
	svc := newTestService(t, repo, nil)

	if err := svc.Delete(context.Background(), actor, rating.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.ratings[rating.ID]; ok {
		t.Fatal("rating should be gone")
	}
	if repo.recomputes != 1 {
		t.Fatalf("expected one recompute, got %d", repo.recomputes)
	}
}

func TestListForUserSelfOrAdminOnly(t *testing.T) {
	repo := newStubRatingRepo()
	svc := newTestService(t, repo, nil)
	target := uuid.New()

	_, err := svc.ListForUser(context.Background(), userActor(), target, pagination.Params{})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	admin := pkgauth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	if _, err := svc.ListForUser(context.Background(), admin, target, pagination.Params{}); err != nil {
		t.Fatalf("admin list: %v", err)
	}

	self := pkgauth.Actor{UserID: target, Role: enums.RoleUser}
	if _, err := svc.ListForUser(context.Background(), self, target, pagination.Params{}); err != nil {
		t.Fatalf("self list: %v", err)
	}
}

func TestListForStoreUnknownStore(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), nil)

	_, err := svc.ListForStore(context.Background(), uuid.New(), pagination.Params{})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
