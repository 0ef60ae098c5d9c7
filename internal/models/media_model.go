package models

import "time"

// MediaFile records an upload made through the media library so it can be
// browsed and reused. Letter documents are stored on their template instead.
type MediaFile struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	FileName   string     `gorm:"size:255" json:"file_name"`
	URL        string     `gorm:"size:500;uniqueIndex;not null" json:"url"`
	MimeType   string     `gorm:"size:100;index" json:"mime_type"`
	Category   string     `gorm:"size:20;index;not null" json:"category"`
	Size       int64      `json:"size"`
	Width      *int       `json:"width,omitempty"`
	Height     *int       `json:"height,omitempty"`
	UploadedBy *uint      `gorm:"index" json:"uploaded_by,omitempty"`
	Uploader   *AdminUser `gorm:"foreignKey:UploadedBy;constraint:OnDelete:SET NULL" json:"uploader,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
