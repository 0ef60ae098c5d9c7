package news

import (
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// MountAdmin registers /api/admin/news.
func (h *Handler) MountAdmin(r fiber.Router) {
	write := middleware.RequireCapability(permission.NewsManage)
	resource.New[models.News, CreateInput, UpdateInput]("News", h.svc, AdminQuerySpec).
		Mount(r, middleware.RequireCapability(permission.ContentRead), write)

	r.Post("/:id/publish", write, h.Publish)
	r.Post("/:id/unpublish", write, h.Unpublish)
}

// MountPublic registers /api/news.
func (h *Handler) MountPublic(r fiber.Router) {
	r.Get("/", h.ListPublished)
	r.Get("/:slug", h.GetBySlug)
}

func (h *Handler) Publish(c *fiber.Ctx) error {
	id, err := resource.ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, "News")
	}
	n, err := h.svc.Publish(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err, "News")
	}
	return response.Success(c, n, "News published successfully")
}

func (h *Handler) Unpublish(c *fiber.Ctx) error {
	id, err := resource.ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, "News")
	}
	n, err := h.svc.Unpublish(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err, "News")
	}
	return response.Success(c, n, "News unpublished successfully")
}

func (h *Handler) ListPublished(c *fiber.Ctx) error {
	params, page, err := resource.ParseListParams(c, PublicQuerySpec)
	if err != nil {
		return response.FromError(c, err, "News")
	}
	result, err := h.svc.ListPublished(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, "News")
	}
	return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}

func (h *Handler) GetBySlug(c *fiber.Ctx) error {
	n, err := h.svc.ViewBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return response.FromError(c, err, "News")
	}
	return response.Success(c, n, "")
}
