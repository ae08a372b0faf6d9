package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store represents a rateable business listing owned by a single store_owner
// user. AverageRating and TotalRatings are derived from the rating rows and
// are rewritten on every rating mutation; nothing else may touch them.
type Store struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Email         string          `gorm:"type:text;not null;uniqueIndex:uq_stores_email"`
	Address       string          `gorm:"column:address;not null"`
	OwnerID       uuid.UUID       `gorm:"column:owner_id;type:uuid;not null"`
	AverageRating decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0.00"`
	TotalRatings  int             `gorm:"column:total_ratings;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
