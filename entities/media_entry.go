package entities

import (
	"time"

	"github.com/google/uuid"
)

// MediaEntry is a row of the content index. Pending entries are hidden from
// listings until their writer finalizes them.
type MediaEntry struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DisplayName  string    `json:"display_name" gorm:"type:varchar(255);not null"`
	MimeType     string    `json:"mime_type" gorm:"type:varchar(64);not null"`
	IsPending    bool      `json:"is_pending" gorm:"not null;default:false;index:idx_media_entries_pending"`
	RelativePath string    `json:"relative_path" gorm:"type:varchar(1024);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (MediaEntry) TableName() string {
	return "media_entries"
}
