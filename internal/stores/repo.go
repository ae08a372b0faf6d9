package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
)

// sortFields whitelists the sortable columns; anything else falls back to
// created_at desc.
var sortFields = map[string]string{
	"name":           "name",
	"email":          "email",
	"address":        "address",
	"average_rating": "average_rating",
	"total_ratings":  "total_ratings",
	"created_at":     "created_at",
}

// Repository exposes store persistence and the browse/search query layer.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stores repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new store and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error) {
	store := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByEmail retrieves the store matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByOwnerID retrieves the store owned by the given user.
func (r *Repository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// List runs the browse/search/filter query. When requesterID is set each row
// carries that user's own rating for the store.
func (r *Repository) List(ctx context.Context, params ListParams, requesterID *uuid.UUID) ([]StoreWithUserRating, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Store{})
	base = applyFilters(base, params)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{})
	if requesterID != nil {
		query = query.Select(
			"stores.*, (?) AS user_rating",
			r.db.Model(&models.Rating{}).
				Select("value").
				Where("ratings.store_id = stores.id AND ratings.user_id = ?", *requesterID),
		)
	} else {
		query = query.Select("stores.*, NULL AS user_rating")
	}

	page := params.Page.Normalize()
	var rows []StoreWithUserRating
	err := query.
		Order(orderClause(params.SortBy, params.Order)).
		Limit(page.Limit).
		Offset(params.Page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UserRatingFor returns the requester's rating value for a store, nil when absent.
func (r *Repository) UserRatingFor(ctx context.Context, storeID, userID uuid.UUID) (*int, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&rating).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rating.Value, nil
}

// RecentRatings returns the newest ratings for a store joined with rater names.
func (r *Repository) RecentRatings(ctx context.Context, storeID uuid.UUID, limit int) ([]RatingEntry, error) {
	var entries []RatingEntry
	err := r.db.WithContext(ctx).
		Table("ratings").
		Select("ratings.id, ratings.user_id, users.name AS user_name, ratings.value, ratings.created_at, ratings.updated_at").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// RatingsPage returns a page of a store's ratings joined with rater names.
func (r *Repository) RatingsPage(ctx context.Context, storeID uuid.UUID, offset, limit int) ([]RatingEntry, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("store_id = ?", storeID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var entries []RatingEntry
	err = r.db.WithContext(ctx).
		Table("ratings").
		Select("ratings.id, ratings.user_id, users.name AS user_name, ratings.value, ratings.created_at, ratings.updated_at").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// RatingDistribution counts ratings per value 1..5 for a store.
func (r *Repository) RatingDistribution(ctx context.Context, storeID uuid.UUID) (map[int]int64, error) {
	type row struct {
		Value int
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("value, COUNT(*) AS count").
		Where("store_id = ?", storeID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	dist := map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, rw := range rows {
		dist[rw.Value] = rw.Count
	}
	return dist, nil
}

// UpdateFields applies a partial column update to the store row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the store row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Store{}, "id = ?", id).Error
}

// Count returns the total number of stores.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyFilters(query *gorm.DB, params ListParams) *gorm.DB {
	if s := strings.TrimSpace(params.Search); s != "" {
		pattern := "%" + s + "%"
		query = query.Where(
			"name ILIKE ? OR email ILIKE ? OR address ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if n := strings.TrimSpace(params.Name); n != "" {
		query = query.Where("name ILIKE ?", "%"+n+"%")
	}
	if a := strings.TrimSpace(params.Address); a != "" {
		query = query.Where("address ILIKE ?", "%"+a+"%")
	}
	if params.MinRating != nil {
		query = query.Where("average_rating >= ?", *params.MinRating)
	}
	if params.MaxRating != nil {
		query = query.Where("average_rating <= ?", *params.MaxRating)
	}
	return query
}

func orderClause(sortBy, order string) string {
	column, ok := sortFields[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		return "created_at DESC"
	}
	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(order), "desc") {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}
