package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// Repository exposes store media persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a media row.
func (r *Repository) Create(ctx context.Context, m *models.StoreMedia) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID loads a media row by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreMedia, error) {
	var m models.StoreMedia
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByStore returns a store's media, optionally narrowed to one type.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, fileType *enums.MediaType) ([]models.StoreMedia, error) {
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if fileType != nil {
		query = query.Where("file_type = ?", *fileType)
	}
	var rows []models.StoreMedia
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a media row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.StoreMedia{}, "id = ?", id).Error
}

// DeleteByStore removes all media rows for a store and returns the object
// keys that were stored externally plus the number of rows removed.
func (r *Repository) DeleteByStore(ctx context.Context, storeID uuid.UUID) ([]string, int64, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&models.StoreMedia{}).
		Where("store_id = ?", storeID).
		Pluck("object_key", &keys).Error
	if err != nil {
		return nil, 0, err
	}

	result := r.db.WithContext(ctx).Delete(&models.StoreMedia{}, "store_id = ?", storeID)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return keys, result.RowsAffected, nil
}
