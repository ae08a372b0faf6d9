package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"type:text;not null;uniqueIndex:uq_users_email"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Address      *string    `gorm:"column:address"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'user'"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
