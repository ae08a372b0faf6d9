package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a single 1-5 score a user assigned to a store. The composite
// unique index closes the check-then-insert race on duplicate submissions.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_ratings_user_store"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:uq_ratings_user_store"`
	Value     int       `gorm:"column:value;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
