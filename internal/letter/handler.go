package letter

import (
	"errors"

	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/observability"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
)

// View adds the computed downloadable flag the UI uses to hide the download button.
type View struct {
	*models.LetterTemplate
	Downloadable bool `json:"downloadable"`
}

func present(t *models.LetterTemplate) interface{} {
	return View{LetterTemplate: t, Downloadable: t.Downloadable()}
}

type Handler struct {
	svc     *Service
	metrics *observability.Metrics
}

func NewHandler(svc *Service, metrics *observability.Metrics) *Handler {
	return &Handler{svc: svc, metrics: metrics}
}

// MountAdmin registers /api/admin/letters.
func (h *Handler) MountAdmin(r fiber.Router) {
	write := middleware.RequireCapability(permission.LettersManage)

	// registered before /:id so it is not captured as an id
	r.Get("/downloads", middleware.RequireCapability(permission.LogsView), h.Downloads)

	resource.New[models.LetterTemplate, CreateInput, UpdateInput]("Letter template", h.svc, AdminQuerySpec).
		WithView(present).
		Mount(r, middleware.RequireCapability(permission.ContentRead), write)

	r.Post("/:id/file", write, middleware.RequireCapability(permission.MediaUpload), h.AttachFile)
	r.Delete("/:id/file", write, h.DetachFile)
}

// MountPublic registers /api/letters.
func (h *Handler) MountPublic(r fiber.Router) {
	r.Get("/", h.ListActive)
	r.Get("/:slug", h.GetActive)
	r.Get("/:slug/download", h.Download)
}

func (h *Handler) AttachFile(c *fiber.Ctx) error {
	id, err := resource.ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, map[string]string{"file": "file is required"})
	}
	t, err := h.svc.AttachFile(c.UserContext(), id, fh)
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	return response.Success(c, present(t), "File attached successfully")
}

func (h *Handler) DetachFile(c *fiber.Ctx) error {
	id, err := resource.ParseID(c, "id")
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	t, err := h.svc.DetachFile(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	return response.Success(c, present(t), "File removed successfully")
}

func (h *Handler) Downloads(c *fiber.Ctx) error {
	params, page, err := resource.ParseListParams(c, DownloadQuerySpec)
	if err != nil {
		return response.FromError(c, err, "Download")
	}
	result, err := h.svc.Downloads(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, "Download")
	}
	return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}

func (h *Handler) ListActive(c *fiber.Ctx) error {
	params, page, err := resource.ParseListParams(c, PublicQuerySpec)
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	result, err := h.svc.ListActive(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	items := make([]View, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, View{LetterTemplate: &result.Items[i], Downloadable: result.Items[i].Downloadable()})
	}
	return response.SuccessWithMeta(c, items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}

func (h *Handler) GetActive(c *fiber.Ctx) error {
	t, err := h.svc.GetActive(c.UserContext(), c.Params("slug"))
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	return response.Success(c, present(t), "")
}

func (h *Handler) Download(c *fiber.Ctx) error {
	t, err := h.svc.Download(c.UserContext(), c.Params("slug"), Visitor{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)})
	if errors.Is(err, ErrFileNotAvailable) {
		return response.Error(c, fiber.StatusNotFound, "FILE_NOT_AVAILABLE", "No file is available for this letter template", nil)
	}
	if err != nil {
		return response.FromError(c, err, "Letter template")
	}
	h.metrics.LetterDownloaded(t.Category)
	return c.Redirect(*t.FileURL, fiber.StatusFound)
}
