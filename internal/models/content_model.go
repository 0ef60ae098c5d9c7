package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NewsStatus string

const (
	NewsDraft     NewsStatus = "draft"
	NewsPublished NewsStatus = "published"
)

type News struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Slug        string         `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Excerpt     string         `gorm:"size:500" json:"excerpt"`
	Content     string         `gorm:"type:text" json:"content"`
	CoverURL    string         `gorm:"size:500" json:"cover_url"`
	Category    string         `gorm:"size:50;index" json:"category"`
	Status      NewsStatus     `gorm:"size:20;index;not null" json:"status"`
	PublishedAt *time.Time     `gorm:"index" json:"published_at,omitempty"`
	AuthorID    *uint          `gorm:"index" json:"author_id,omitempty"`
	Author      *AdminUser     `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	ViewCount   int64          `json:"view_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// LetterTemplate is a downloadable administrative letter form.
// FileURL stays nil until a document is attached.
type LetterTemplate struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:150;not null" json:"name"`
	Slug          string         `gorm:"size:170;uniqueIndex;not null" json:"slug"`
	Category      string         `gorm:"size:50;index;not null" json:"category"`
	Description   string         `gorm:"type:text" json:"description"`
	Requirements  datatypes.JSON `json:"requirements,omitempty"`
	FileURL       *string        `gorm:"size:500" json:"file_url"`
	FileName      string         `gorm:"size:255" json:"file_name,omitempty"`
	FileSize      int64          `json:"file_size,omitempty"`
	MimeType      string         `gorm:"size:100" json:"mime_type,omitempty"`
	DownloadCount int64          `json:"download_count"`
	IsActive      bool           `gorm:"index;not null" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (l LetterTemplate) Downloadable() bool {
	return l.FileURL != nil && *l.FileURL != ""
}

type DownloadLog struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	LetterTemplateID uint            `gorm:"index;not null" json:"letter_template_id"`
	LetterTemplate   *LetterTemplate `gorm:"foreignKey:LetterTemplateID" json:"letter_template,omitempty"`
	IP               string          `gorm:"size:64" json:"ip"`
	UserAgent        string          `gorm:"size:255" json:"user_agent"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

type GalleryItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"size:500;not null" json:"image_url"`
	Category    string         `gorm:"size:50;index" json:"category"`
	IsFeatured  bool           `gorm:"index;not null" json:"is_featured"`
	IsActive    bool           `gorm:"index;not null" json:"is_active"`
	TakenAt     *time.Time     `json:"taken_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type HeroSlide struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	Subtitle  string         `gorm:"size:300" json:"subtitle"`
	ImageURL  string         `gorm:"size:500;not null" json:"image_url"`
	LinkURL   string         `gorm:"size:500" json:"link_url"`
	SortOrder int            `gorm:"index" json:"sort_order"`
	IsActive  bool           `gorm:"index;not null" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type ContactMessage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Email     string         `gorm:"size:100;not null" json:"email"`
	Phone     string         `gorm:"size:30" json:"phone"`
	Subject   string         `gorm:"size:200;not null" json:"subject"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	IsRead    bool           `gorm:"index;not null" json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	IP        string         `gorm:"size:64" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
