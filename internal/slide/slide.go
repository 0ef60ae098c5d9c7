package slide

import (
	"context"
	"strings"

	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"is_active": store.FilterBool},
	Sortable:      []string{"sort_order", "title", "created_at"},
	DefaultSort:   "sort_order",
	SearchColumns: []string{"title", "subtitle"},
}

type CreateInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Subtitle  string `json:"subtitle" validate:"max=300"`
	ImageURL  string `json:"image_url" validate:"required,max=500"`
	LinkURL   string `json:"link_url" validate:"max=500"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateInput struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=200"`
	Subtitle  *string `json:"subtitle" validate:"omitempty,max=300"`
	ImageURL  *string `json:"image_url" validate:"omitempty,min=1,max=500"`
	LinkURL   *string `json:"link_url" validate:"omitempty,max=500"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

type Service struct {
	repo *store.Repository[models.HeroSlide]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.HeroSlide](db, QuerySpec)}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.HeroSlide], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.HeroSlide, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.HeroSlide, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	title, imageURL := sanitize.Text(in.Title), strings.TrimSpace(in.ImageURL)
	if err := store.Required(map[string]*string{"title": &title, "image_url": &imageURL}); err != nil {
		return nil, err
	}
	sl := &models.HeroSlide{
		Title:     title,
		Subtitle:  sanitize.Text(in.Subtitle),
		ImageURL:  imageURL,
		LinkURL:   strings.TrimSpace(in.LinkURL),
		SortOrder: in.SortOrder,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, sl); err != nil {
		return nil, err
	}
	return sl, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.HeroSlide, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	title, imageURL := sanitize.TextPtr(in.Title), sanitize.TrimPtr(in.ImageURL)
	if err := store.Required(map[string]*string{"title": title, "image_url": imageURL}); err != nil {
		return nil, err
	}
	changes := store.Changes{}
	store.Set(changes, "title", title)
	store.Set(changes, "subtitle", sanitize.TextPtr(in.Subtitle))
	store.Set(changes, "image_url", imageURL)
	store.Set(changes, "link_url", sanitize.TrimPtr(in.LinkURL))
	store.Set(changes, "sort_order", in.SortOrder)
	store.Set(changes, "is_active", in.IsActive)
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Active(ctx context.Context) ([]models.HeroSlide, error) {
	page, err := s.repo.List(ctx, store.ListParams{Filters: []store.Filter{{Column: "is_active", Value: true}}})
	return page.Items, err
}

func Mount(r fiber.Router, svc *Service) {
	resource.New[models.HeroSlide, CreateInput, UpdateInput]("Slide", svc, QuerySpec).
		Mount(r, middleware.RequireCapability(permission.ContentRead), middleware.RequireCapability(permission.SlidesManage))
}

func MountPublic(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		slides, err := svc.Active(c.UserContext())
		if err != nil {
			return response.FromError(c, err, "Slide")
		}
		return response.Success(c, slides, "")
	})
}
