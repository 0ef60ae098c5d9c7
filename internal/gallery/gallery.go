package gallery

import (
	"context"
	"strings"
	"time"

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

var AdminQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString, "is_featured": store.FilterBool, "is_active": store.FilterBool},
	Sortable:      []string{"title", "created_at", "taken_at"},
	DefaultSort:   "-created_at",
	SearchColumns: []string{"title", "description"},
}

var PublicQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString, "is_featured": store.FilterBool},
	Sortable:      []string{"created_at", "taken_at", "title"},
	DefaultSort:   "-created_at",
	SearchColumns: []string{"title", "description"},
}

type CreateInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url" validate:"required,max=500"`
	Category    string     `json:"category" validate:"max=50"`
	IsFeatured  bool       `json:"is_featured"`
	IsActive    *bool      `json:"is_active"`
	TakenAt     *time.Time `json:"taken_at"`
}

type UpdateInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"image_url" validate:"omitempty,min=1,max=500"`
	Category    *string    `json:"category" validate:"omitempty,max=50"`
	IsFeatured  *bool      `json:"is_featured"`
	IsActive    *bool      `json:"is_active"`
	TakenAt     *time.Time `json:"taken_at"`
}

type Service struct {
	repo *store.Repository[models.GalleryItem]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.GalleryItem](db, AdminQuerySpec)}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.GalleryItem], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.GalleryItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.GalleryItem, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	item := &models.GalleryItem{
		Title:       sanitize.Text(in.Title),
		Description: sanitize.Text(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Category:    strings.TrimSpace(in.Category),
		IsFeatured:  in.IsFeatured,
		IsActive:    in.IsActive == nil || *in.IsActive,
		TakenAt:     in.TakenAt,
	}
	if err := store.Required(map[string]*string{"title": &item.Title, "image_url": &item.ImageURL}); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.GalleryItem, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	title, imageURL := sanitize.TextPtr(in.Title), sanitize.TrimPtr(in.ImageURL)
	if err := store.Required(map[string]*string{"title": title, "image_url": imageURL}); err != nil {
		return nil, err
	}
	changes := store.Changes{}
	store.Set(changes, "title", title)
	store.Set(changes, "description", sanitize.TextPtr(in.Description))
	store.Set(changes, "image_url", imageURL)
	if in.Category != nil {
		changes["category"] = strings.TrimSpace(*in.Category)
	}
	store.Set(changes, "is_featured", in.IsFeatured)
	store.Set(changes, "is_active", in.IsActive)
	store.Set(changes, "taken_at", in.TakenAt)

	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// ToggleFeatured flips is_featured in a single statement.
func (s *Service) ToggleFeatured(ctx context.Context, id uint) (*models.GalleryItem, error) {
	return s.repo.Update(ctx, id, store.Changes{"is_featured": gorm.Expr("NOT is_featured")})
}

func (s *Service) ListActive(ctx context.Context, p store.ListParams) (store.Page[models.GalleryItem], error) {
	public := store.NewRepository[models.GalleryItem](s.repo.DB(), PublicQuerySpec)
	return public.List(ctx, p.With("is_active", true))
}

func (s *Service) Featured(ctx context.Context, limit int) ([]models.GalleryItem, error) {
	page, err := s.ListActive(ctx, store.ListParams{Limit: limit, Filters: []store.Filter{{Column: "is_featured", Value: true}}})
	return page.Items, err
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) MountAdmin(r fiber.Router) {
	write := middleware.RequireCapability(permission.GalleryManage)
	resource.New[models.GalleryItem, CreateInput, UpdateInput]("Gallery item", h.svc, AdminQuerySpec).
		Mount(r, middleware.RequireCapability(permission.ContentRead), write)
	r.Patch("/:id/toggle-featured", write, h.ToggleFeatured)
}

func (h *Handler) MountPublic(r fiber.Router) {
	r.Get("/", h.ListActive)
}

func (h *Handler) ToggleFeatured(c *fiber.Ctx) error {
	id, err := resource.ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, "Gallery item")
	}
	item, err := h.svc.ToggleFeatured(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err, "Gallery item")
	}
	return response.Success(c, item, "Gallery item updated successfully")
}

func (h *Handler) ListActive(c *fiber.Ctx) error {
	params, page, err := resource.ParseListParams(c, PublicQuerySpec)
	if err != nil {
		return response.FromError(c, err, "Gallery item")
	}
	result, err := h.svc.ListActive(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, "Gallery item")
	}
	return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}
