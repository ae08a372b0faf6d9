package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// StoreMedia captures metadata for an asset uploaded for a store. The binary
// itself lives on the external object host; ObjectKey identifies it there.
type StoreMedia struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	FileURL   string          `gorm:"column:file_url;not null"`
	FileName  string          `gorm:"column:file_name;not null"`
	FileType  enums.MediaType `gorm:"column:file_type;type:text;not null"`
	ObjectKey string          `gorm:"column:object_key;not null;unique"`
	SizeBytes int64           `gorm:"column:size_bytes;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the plural-safe table name.
func (StoreMedia) TableName() string {
	return "store_media"
}
