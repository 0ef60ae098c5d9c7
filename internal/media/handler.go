package media

import (
	"errors"
	"strings"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
)

const maxBulkFiles = 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers /api/admin/media.
func (h *Handler) Mount(r fiber.Router) {
	upload := middleware.RequireCapability(permission.MediaUpload)
	r.Get("/", upload, h.List)
	r.Post("/upload", upload, h.Upload)
	r.Post("/bulk-upload", upload, h.BulkUpload)
	r.Delete("/", upload, h.Delete)
}

func (h *Handler) List(c *fiber.Ctx) error {
	params, page, err := resource.ParseListParams(c, QuerySpec)
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	result, err := h.svc.List(c.UserContext(), params)
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
}

func (h *Handler) Upload(c *fiber.Ctx) error {
	category, err := storage.ParseCategory(c.FormValue("category"))
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, store.FieldErrors{"file": "file is required"})
	}

	rec, err := h.svc.Upload(c.UserContext(), file, category)
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	return response.Created(c, rec, "Media uploaded successfully")
}

func (h *Handler) BulkUpload(c *fiber.Ctx) error {
	category, err := storage.ParseCategory(c.FormValue("category"))
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Invalid form data", nil)
	}

	files := form.File["files"]
	if len(files) == 0 {
		return response.ValidationError(c, store.FieldErrors{"files": "files is required"})
	}
	if len(files) > maxBulkFiles {
		return response.ValidationError(c, store.FieldErrors{"files": "at most 10 files can be uploaded at once"})
	}

	uploaded := make([]*models.MediaFile, 0, len(files))
	failed := make([]fiber.Map, 0)
	for _, file := range files {
		rec, err := h.svc.Upload(c.UserContext(), file, category)
		if err != nil {
			logger.From(c).WithError(err).WithField("file", file.Filename).Warn("bulk upload item rejected")
			failed = append(failed, fiber.Map{"file_name": file.Filename, "error": uploadError(err)})
			continue
		}
		uploaded = append(uploaded, rec)
	}

	return response.Created(c, fiber.Map{
		"uploaded": len(uploaded),
		"failed":   len(failed),
		"files":    uploaded,
		"errors":   failed,
	}, "Bulk upload completed")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if strings.TrimSpace(body.URL) == "" {
		return response.ValidationError(c, store.FieldErrors{"url": "url is required"})
	}
	err := h.svc.Delete(c.UserContext(), body.URL)
	if errors.Is(err, storage.ErrForeignURL) {
		return response.ValidationError(c, store.FieldErrors{"url": "url is not a stored upload"})
	}
	if err != nil {
		return response.FromError(c, err, "Media")
	}
	return response.Success(c, fiber.Map{"url": body.URL}, "Media deleted successfully")
}

func uploadError(err error) string {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		if msg, ok := verr.Fields["file"]; ok {
			return msg
		}
	}
	return "upload failed"
}
