package setting

import (
	"context"
	"net/url"
	"strings"

	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"group": store.FilterString},
	Sortable:      []string{"key", "group", "updated_at"},
	DefaultSort:   "key",
	SearchColumns: []string{"key", "value"},
}

type Input struct {
	Value string `json:"value" validate:"max=5000"`
	Group string `json:"group" validate:"max=50"`
}

type Service struct {
	repo *store.Repository[models.SiteSetting]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.SiteSetting](db, QuerySpec)}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.SiteSetting], error) {
	return s.repo.List(ctx, p)
}

// Map returns every setting keyed by its key.
func (s *Service) Map(ctx context.Context) (map[string]string, error) {
	page, err := s.repo.List(ctx, store.ListParams{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(page.Items))
	for _, st := range page.Items {
		out[st.Key] = st.Value
	}
	return out, nil
}

// Put creates or replaces the setting stored under key.
func (s *Service) Put(ctx context.Context, key string, in Input) (*models.SiteSetting, error) {
	key = normalizeKey(key)
	if err := validKey(key); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	rec := models.SiteSetting{Key: key, Value: sanitize.Text(in.Value), Group: strings.TrimSpace(in.Group)}
	err := s.repo.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "group", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	return s.repo.FindBy(ctx, "key", key)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	key = normalizeKey(key)
	if err := validKey(key); err != nil {
		return err
	}
	res := s.repo.DB().WithContext(ctx).Where("key = ?", key).Delete(&models.SiteSetting{})
	if res.Error != nil {
		return store.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func validKey(key string) error {
	if key == "" {
		return store.Invalid("key", "key is required")
	}
	if len(key) > 100 {
		return store.Invalid("key", "key must be at most 100 characters")
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '.' && r != '-' {
			return store.Invalid("key", "key may only contain a-z, 0-9, '_', '.' and '-'")
		}
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) MountAdmin(r fiber.Router) {
	manage := middleware.RequireCapability(permission.SettingsManage)
	r.Get("/", middleware.RequireCapability(permission.ContentRead), h.List)
	r.Put("/:key", manage, h.Put)
	r.Delete("/:key", manage, h.Delete)
}

func (h *Handler) MountPublic(r fiber.Router) {
	r.Get("/", h.Map)
}

func (h *Handler) List(c *fiber.Ctx) error {
	group := c.Query("group")
	p := store.ListParams{}
	if group != "" {
		p = p.With("group", group)
	}
	page, err := h.svc.List(c.UserContext(), p)
	if err != nil {
		return response.FromError(c, err, "Setting")
	}
	return response.Success(c, page.Items, "")
}

func (h *Handler) Map(c *fiber.Ctx) error {
	out, err := h.svc.Map(c.UserContext())
	if err != nil {
		return response.FromError(c, err, "Setting")
	}
	return response.Success(c, out, "")
}

func (h *Handler) Put(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	rec, err := h.svc.Put(c.UserContext(), keyParam(c), in)
	if err != nil {
		return response.FromError(c, err, "Setting")
	}
	return response.Success(c, rec, "Setting saved successfully")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	key := normalizeKey(keyParam(c))
	if err := h.svc.Delete(c.UserContext(), key); err != nil {
		return response.FromError(c, err, "Setting")
	}
	return response.Success(c, fiber.Map{"key": key}, "Setting deleted successfully")
}

func keyParam(c *fiber.Ctx) string {
	raw := c.Params("key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}
