package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VillageProfile holds a single row describing the village.
type VillageProfile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	VillageName string         `gorm:"size:150;not null" json:"village_name"`
	History     string         `gorm:"type:text" json:"history"`
	Vision      string         `gorm:"type:text" json:"vision"`
	Missions    datatypes.JSON `json:"missions,omitempty"`
	Area        string         `gorm:"size:100" json:"area"`
	Boundaries  string         `gorm:"type:text" json:"boundaries"`
	Address     string         `gorm:"size:300" json:"address"`
	MapEmbedURL string         `gorm:"size:1000" json:"map_embed_url"`
	LogoURL     string         `gorm:"size:500" json:"logo_url"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// OrgMember is one seat in the village government structure.
type OrgMember struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Position  string         `gorm:"size:100;not null" json:"position"`
	NIP       string         `gorm:"size:30" json:"nip"`
	PhotoURL  string         `gorm:"size:500" json:"photo_url"`
	Period    string         `gorm:"size:30" json:"period"`
	SortOrder int            `gorm:"index" json:"sort_order"`
	IsActive  bool           `gorm:"index;not null" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type PopulationStat struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Year        int            `gorm:"index:idx_population_year_category;not null" json:"year"`
	Category    string         `gorm:"size:30;index:idx_population_year_category;not null" json:"category"`
	Label       string         `gorm:"size:100;not null" json:"label"`
	MaleCount   int            `json:"male_count"`
	FemaleCount int            `json:"female_count"`
	SortOrder   int            `json:"sort_order"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p PopulationStat) Total() int {
	return p.MaleCount + p.FemaleCount
}

type SiteSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Group     string    `gorm:"size:50;index" json:"group"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;size:255"`
	AppliedAt time.Time
}
