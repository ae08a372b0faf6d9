package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateFields applies a partial column update to the user row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

// CountByRole returns the number of users per role.
func (r *Repository) CountByRole(ctx context.Context) (map[enums.Role]int64, error) {
	type row struct {
		Role  enums.Role
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.Role]int64, len(rows))
	for _, rw := range rows {
		out[rw.Role] = rw.Count
	}
	return out, nil
}

// ListQuery collects the admin listing filters.
type ListQuery struct {
	Search string
	Role   enums.Role
	SortBy string
	Order  string
	Offset int
	Limit  int
}

// listSortFields whitelists the sortable columns for admin listings.
var listSortFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

// List runs the admin user listing with filters, sort, and pagination.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.User, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.User{})
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + s + "%"
		base = base.Where("name ILIKE ? OR email ILIKE ? OR address ILIKE ?", pattern, pattern, pattern)
	}
	if q.Role.IsValid() {
		base = base.Where("role = ?", q.Role)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := listSortFields[strings.ToLower(strings.TrimSpace(q.SortBy))]
	if !ok {
		column = "created_at"
		q.Order = "desc"
	}
	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(q.Order), "desc") {
		direction = "DESC"
	}

	var rows []models.User
	err := base.Session(&gorm.Session{}).
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Count returns the total number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
