package media

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
)

// MediaDTO is the transport shape for a stored asset.
type MediaDTO struct {
	ID        uuid.UUID       `json:"id"`
	StoreID   uuid.UUID       `json:"store_id"`
	FileURL   string          `json:"file_url"`
	FileName  string          `json:"file_name"`
	FileType  enums.MediaType `json:"file_type"`
	SizeBytes int64           `json:"size_bytes"`
	CreatedAt time.Time       `json:"created_at"`
}

// StoreMediaResult groups a store's assets by kind.
type StoreMediaResult struct {
	Images []MediaDTO `json:"images"`
	Videos []MediaDTO `json:"videos"`
	Total  int        `json:"total"`
}

func fromModel(m *models.StoreMedia) MediaDTO {
	return MediaDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		FileURL:   m.FileURL,
		FileName:  m.FileName,
		FileType:  m.FileType,
		SizeBytes: m.SizeBytes,
		CreatedAt: m.CreatedAt,
	}
}
