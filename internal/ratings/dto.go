package ratings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

// SubmitRequest is the payload for creating a rating.
type SubmitRequest struct {
	StoreID uuid.UUID `json:"store_id" validate:"required"`
	Value   int       `json:"value" validate:"required,min=1,max=5"`
}

// UpdateRequest is the payload for changing a rating's value.
type UpdateRequest struct {
	Value int `json:"value" validate:"required,min=1,max=5"`
}

// RatingDTO is the transport shape for a rating row.
type RatingDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitResponse returns the rating plus the store's refreshed aggregate.
type SubmitResponse struct {
	Rating       RatingDTO       `json:"rating"`
	StoreAverage decimal.Decimal `json:"store_average"`
	StoreTotal   int             `json:"store_total"`
}

// RatingWithStore is a rating row joined with its store summary.
type RatingWithStore struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	StoreName    string          `json:"store_name"`
	StoreAddress string          `json:"store_address"`
	Value        int             `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RatingWithRater is a rating row joined with the rater's name.
type RatingWithRater struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRatingsResult is a page of a user's ratings.
type UserRatingsResult struct {
	Ratings []RatingWithStore `json:"ratings"`
	Meta    pagination.Meta   `json:"pagination"`
}

// StoreRatingsResult is a page of a store's ratings.
type StoreRatingsResult struct {
	Ratings []RatingWithRater `json:"ratings"`
	Meta    pagination.Meta   `json:"pagination"`
}

func fromModel(r *models.Rating) RatingDTO {
	return RatingDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		StoreID:   r.StoreID,
		Value:     r.Value,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
