package ratings

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
)

// Repository is the persistence surface the rating service depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rating *models.Rating) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rating, error)
	UpdateValue(ctx context.Context, id uuid.UUID, value int) error
	Delete(ctx context.Context, id uuid.UUID) error
	RecomputeStoreAggregate(ctx context.Context, storeID uuid.UUID) (decimal.Decimal, int, error)
	ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]RatingWithStore, int64, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, offset, limit int) ([]RatingWithRater, int64, error)
	Count(ctx context.Context) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a ratings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).First(&rating, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *repository) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	return r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("id = ?", id).
		UpdateColumn("value", value).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Rating{}, "id = ?", id).Error
}

// RecomputeStoreAggregate rewrites the store's derived columns from a full
// AVG/COUNT over its rating rows. Callers must run this inside the same
// transaction as the rating mutation; the store row is locked to serialize
// concurrent writers.
func (r *repository) RecomputeStoreAggregate(ctx context.Context, storeID uuid.UUID) (decimal.Decimal, int, error) {
	tx := r.db.WithContext(ctx)

	var store models.Store
	lockQuery := tx
	if tx.Dialector.Name() == "postgres" {
		// sqlite (tests) has no FOR UPDATE
		lockQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := lockQuery.First(&store, "id = ?", storeID).Error; err != nil {
		return decimal.Zero, 0, err
	}

	var agg struct {
		Avg   *float64
		Total int64
	}
	err := tx.Model(&models.Rating{}).
		Select("AVG(value) AS avg, COUNT(*) AS total").
		Where("store_id = ?", storeID).
		Scan(&agg).Error
	if err != nil {
		return decimal.Zero, 0, err
	}

	average := decimal.Zero.Round(2)
	if agg.Avg != nil && agg.Total > 0 {
		average = decimal.NewFromFloat(*agg.Avg).Round(2)
	}

	err = tx.Model(&models.Store{}).
		Where("id = ?", storeID).
		UpdateColumns(map[string]any{
			"average_rating": average,
			"total_ratings":  agg.Total,
		}).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return average, int(agg.Total), nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]RatingWithStore, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []RatingWithStore
	err = r.db.WithContext(ctx).
		Table("ratings").
		Select("ratings.id, ratings.store_id, stores.name AS store_name, stores.address AS store_address, ratings.value, ratings.created_at, ratings.updated_at").
		Joins("JOIN stores ON stores.id = ratings.store_id").
		Where("ratings.user_id = ?", userID).
		Order("ratings.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListForStore(ctx context.Context, storeID uuid.UUID, offset, limit int) ([]RatingWithRater, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("store_id = ?", storeID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []RatingWithRater
	err = r.db.WithContext(ctx).
		Table("ratings").
		Select("ratings.id, ratings.user_id, users.name AS user_name, ratings.value, ratings.created_at, ratings.updated_at").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Rating{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// DeleteByUser removes every rating authored by the user and reports how many
// rows went away. Used by the cascade delete.
func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Rating{}, "user_id = ?", userID)
	return result.RowsAffected, result.Error
}

// DeleteByStore removes every rating attached to the store.
func (r *repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Rating{}, "store_id = ?", storeID)
	return result.RowsAffected, result.Error
}
