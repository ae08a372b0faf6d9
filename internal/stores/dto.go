package stores

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

// StoreDTO is the public transport shape for a store listing.
type StoreDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AverageRating decimal.Decimal `json:"average_rating"`
	TotalRatings  int             `json:"total_ratings"`
	UserRating    *int            `json:"user_rating,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OwnerSummary is the slim owner shape embedded in store detail responses.
type OwnerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// RatingEntry is a rating row joined with the rater's name.
type RatingEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreDetailDTO augments the listing shape with owner and recent activity.
type StoreDetailDTO struct {
	StoreDTO
	Owner         *OwnerSummary `json:"owner,omitempty"`
	RecentRatings []RatingEntry `json:"recent_ratings"`
}

// CreateStoreDTO holds the data the repo needs to persist a store.
type CreateStoreDTO struct {
	Name    string
	Email   string
	Address string
	OwnerID uuid.UUID
}

// UpdateStoreRequest carries the mutable store profile fields.
type UpdateStoreRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=120"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=400"`
}

// ListParams collects the browse/search/filter inputs.
type ListParams struct {
	Search    string
	Name      string
	Address   string
	MinRating *float64
	MaxRating *float64
	SortBy    string
	Order     string
	Page      pagination.Params
}

// ListResult is a page of stores plus pagination metadata.
type ListResult struct {
	Stores []StoreDTO      `json:"stores"`
	Meta   pagination.Meta `json:"pagination"`
}

// RatingsResult is a page of ratings plus pagination metadata.
type RatingsResult struct {
	Ratings []RatingEntry   `json:"ratings"`
	Meta    pagination.Meta `json:"pagination"`
}

// OwnerDashboardDTO is what a store owner sees for their own store.
type OwnerDashboardDTO struct {
	Store        StoreDTO      `json:"store"`
	Distribution map[int]int64 `json:"rating_distribution"`
}

// StoreWithUserRating is the repo row shape carrying the optional
// requester-specific rating.
type StoreWithUserRating struct {
	models.Store
	UserRating *int
}

func fromRow(row StoreWithUserRating) StoreDTO {
	dto := FromModel(&row.Store)
	dto.UserRating = row.UserRating
	return dto
}

func FromModel(s *models.Store) StoreDTO {
	return StoreDTO{
		ID:            s.ID,
		Name:          s.Name,
		Email:         s.Email,
		Address:       s.Address,
		OwnerID:       s.OwnerID,
		AverageRating: s.AverageRating,
		TotalRatings:  s.TotalRatings,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (c CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		Name:          c.Name,
		Email:         c.Email,
		Address:       c.Address,
		OwnerID:       c.OwnerID,
		AverageRating: decimal.Zero,
	}
}
