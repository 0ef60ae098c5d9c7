package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/store"
	"gorm.io/gorm"
)

const (
	MinQueryLength = 2
	defaultLimit   = 5
	maxLimit       = 20
)

type Hit struct {
	Type    string `json:"type"`
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug,omitempty"`
	Summary string `json:"summary,omitempty"`
	Image   string `json:"image,omitempty"`
}

type Result struct {
	Query   string `json:"query"`
	Total   int    `json:"total"`
	News    []Hit  `json:"news"`
	Letters []Hit  `json:"letters"`
	Gallery []Hit  `json:"gallery"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Search looks through published news, active letter templates and active
// gallery items. Each group holds at most limit hits.
func (s *Service) Search(ctx context.Context, query string, limit int) (*Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, store.Invalid("q", "q must be at least 2 characters")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	out := &Result{Query: query, News: make([]Hit, 0), Letters: make([]Hit, 0), Gallery: make([]Hit, 0)}

	var news []models.News
	err := s.match(ctx, &models.News{}, query, "title", "excerpt", "content").
		Where("status = ?", models.NewsPublished).
		Order("published_at DESC").Limit(limit).Find(&news).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	for _, n := range news {
		out.News = append(out.News, Hit{Type: "news", ID: n.ID, Title: n.Title, Slug: n.Slug, Summary: n.Excerpt, Image: n.CoverURL})
	}

	var letters []models.LetterTemplate
	err = s.match(ctx, &models.LetterTemplate{}, query, "name", "description").
		Where("is_active = ?", true).
		Order("name").Limit(limit).Find(&letters).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	for _, l := range letters {
		out.Letters = append(out.Letters, Hit{Type: "letter", ID: l.ID, Title: l.Name, Slug: l.Slug, Summary: l.Category})
	}

	var gallery []models.GalleryItem
	err = s.match(ctx, &models.GalleryItem{}, query, "title", "description").
		Where("is_active = ?", true).
		Order("created_at DESC").Limit(limit).Find(&gallery).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	for _, g := range gallery {
		out.Gallery = append(out.Gallery, Hit{Type: "gallery", ID: g.ID, Title: g.Title, Summary: g.Description, Image: g.ImageURL})
	}

	out.Total = len(out.News) + len(out.Letters) + len(out.Gallery)
	return out, nil
}

// match filters model rows whose columns contain query. Postgres uses ILIKE,
// other dialects fall back to LOWER(...) LIKE.
func (s *Service) match(ctx context.Context, model interface{}, query string, columns ...string) *gorm.DB {
	db := s.db.WithContext(ctx).Model(model)
	pattern := "%" + strings.ToLower(query) + "%"

	op := "LOWER(%s) LIKE ?"
	if db.Dialector.Name() == "postgres" {
		op = "%s ILIKE ?"
	}

	conditions := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conditions = append(conditions, strings.Replace(op, "%s", col, 1))
		args = append(args, pattern)
	}
	return db.Where("("+strings.Join(conditions, " OR ")+")", args...)
}
