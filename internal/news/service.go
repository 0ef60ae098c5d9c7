package news

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"gorm.io/gorm"
)

const excerptLength = 200

var AdminQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"status": store.FilterString, "category": store.FilterString, "author_id": store.FilterInt},
	Sortable:      []string{"title", "created_at", "updated_at", "published_at", "view_count"},
	DefaultSort:   "-created_at",
	SearchColumns: []string{"title", "excerpt"},
}

var PublicQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString},
	Sortable:      []string{"published_at", "view_count", "title"},
	DefaultSort:   "-published_at",
	SearchColumns: []string{"title", "excerpt", "content"},
}

type CreateInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Excerpt  string `json:"excerpt" validate:"max=500"`
	Content  string `json:"content"`
	CoverURL string `json:"cover_url" validate:"max=500"`
	Category string `json:"category" validate:"max=50"`
	Status   string `json:"status" validate:"omitempty,oneof=draft published"`
}

type UpdateInput struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=200"`
	Slug     *string `json:"slug" validate:"omitempty,max=220"`
	Excerpt  *string `json:"excerpt" validate:"omitempty,max=500"`
	Content  *string `json:"content"`
	CoverURL *string `json:"cover_url" validate:"omitempty,max=500"`
	Category *string `json:"category" validate:"omitempty,max=50"`
	Status   *string `json:"status" validate:"omitempty,oneof=draft published"`
}

type Service struct {
	repo *store.Repository[models.News]
	now  func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.News](db, AdminQuerySpec), now: time.Now}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.News], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.News, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.News, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, store.Invalid("title", "title is required")
	}
	slug, err := store.UniqueSlug(ctx, s.repo.DB(), &models.News{}, title, 0)
	if err != nil {
		return nil, err
	}

	content := sanitize.HTML(in.Content)
	n := &models.News{
		Title:    title,
		Slug:     slug,
		Excerpt:  excerptFor(sanitize.Text(in.Excerpt), content),
		Content:  content,
		CoverURL: strings.TrimSpace(in.CoverURL),
		Category: strings.TrimSpace(in.Category),
		Status:   models.NewsDraft,
	}
	if p := principal.FromContext(ctx); p != nil {
		id := p.ID
		n.AuthorID = &id
	}
	if in.Status == string(models.NewsPublished) {
		now := s.now()
		n.Status = models.NewsPublished
		n.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.News, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := store.Changes{}
	if in.Title != nil {
		title := sanitize.Text(*in.Title)
		if title == "" {
			return nil, store.Invalid("title", "title is required")
		}
		changes["title"] = title
	}
	if in.Slug != nil {
		slug, err := store.UniqueSlug(ctx, s.repo.DB(), &models.News{}, *in.Slug, id)
		if err != nil {
			return nil, err
		}
		changes["slug"] = slug
	}
	if in.Content != nil {
		changes["content"] = sanitize.HTML(*in.Content)
	}
	if in.Excerpt != nil {
		content := current.Content
		if c, ok := changes["content"].(string); ok {
			content = c
		}
		changes["excerpt"] = excerptFor(sanitize.Text(*in.Excerpt), content)
	}
	if in.CoverURL != nil {
		changes["cover_url"] = strings.TrimSpace(*in.CoverURL)
	}
	if in.Category != nil {
		changes["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Status != nil {
		s.applyStatus(changes, current, models.NewsStatus(*in.Status))
	}

	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// Publish makes an article public. published_at is set the first time only.
func (s *Service) Publish(ctx context.Context, id uint) (*models.News, error) {
	return s.setStatus(ctx, id, models.NewsPublished)
}

func (s *Service) Unpublish(ctx context.Context, id uint) (*models.News, error) {
	return s.setStatus(ctx, id, models.NewsDraft)
}

func (s *Service) setStatus(ctx context.Context, id uint, status models.NewsStatus) (*models.News, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := store.Changes{}
	s.applyStatus(changes, current, status)
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) applyStatus(changes store.Changes, current *models.News, status models.NewsStatus) {
	changes["status"] = status
	if status == models.NewsPublished && current.PublishedAt == nil {
		changes["published_at"] = s.now()
	}
}

// ListPublished is the public listing, newest first.
func (s *Service) ListPublished(ctx context.Context, p store.ListParams) (store.Page[models.News], error) {
	return s.public().List(ctx, p.With("status", string(models.NewsPublished)))
}

func (s *Service) Latest(ctx context.Context, limit int) ([]models.News, error) {
	page, err := s.ListPublished(ctx, store.ListParams{Limit: limit})
	return page.Items, err
}

// ViewBySlug returns a published article and counts the view.
func (s *Service) ViewBySlug(ctx context.Context, slug string) (*models.News, error) {
	db := s.repo.DB().WithContext(ctx)

	var n models.News
	err := db.Preload("Author").
		Where("slug = ? AND status = ?", slug, models.NewsPublished).
		First(&n).Error
	if err != nil {
		return nil, store.Translate(err)
	}

	if err := db.Model(&models.News{}).Where("id = ?", n.ID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
		return nil, store.Translate(err)
	}
	n.ViewCount++
	return &n, nil
}

func (s *Service) public() *store.Repository[models.News] {
	return store.NewRepository[models.News](s.repo.DB(), PublicQuerySpec)
}

func excerptFor(excerpt, content string) string {
	if excerpt != "" {
		return excerpt
	}
	text := sanitize.Text(content)
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
