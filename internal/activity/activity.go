package activity

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var QuerySpec = store.QuerySpec{
	Filters:     map[string]store.FilterKind{"user_id": store.FilterInt, "resource": store.FilterString, "action": store.FilterString},
	Sortable:    []string{"created_at", "resource"},
	DefaultSort: "-created_at",
}

type Service struct {
	repo *store.Repository[models.ActivityLog]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.ActivityLog](db, QuerySpec)}
}

func (s *Service) Record(ctx context.Context, entry *models.ActivityLog) error {
	return s.repo.Create(ctx, entry)
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.ActivityLog], error) {
	return s.repo.List(ctx, p)
}

// Recorder writes one activity row for every successful mutating request
// made by a signed-in principal under prefix. Failures are logged only.
func Recorder(svc *Service, prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil || !mutating(c.Method()) || c.Response().StatusCode() >= fiber.StatusBadRequest {
			return err
		}
		p := principal.From(c)
		if p == nil {
			return nil
		}

		entry := &models.ActivityLog{
			UserID:     &p.ID,
			Action:     c.Method(),
			Resource:   resourceOf(c.Path(), prefix),
			Path:       truncate(c.Path(), 255),
			StatusCode: c.Response().StatusCode(),
			IP:         c.IP(),
			Metadata:   routeParams(c),
		}
		if rerr := svc.Record(c.UserContext(), entry); rerr != nil {
			logger.From(c).WithError(rerr).Warn("failed to record activity")
		}
		return nil
	}
}

func mutating(method string) bool {
	switch method {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return true
	}
	return false
}

func resourceOf(path, prefix string) string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return truncate(rest, 50)
}

func routeParams(c *fiber.Ctx) datatypes.JSON {
	names := c.Route().Params
	if len(names) == 0 {
		return nil
	}
	params := make(map[string]string, len(names))
	for _, n := range names {
		params[n] = c.Params(n)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func Mount(r fiber.Router, svc *Service) {
	r.Get("/", middleware.RequireCapability(permission.LogsView), func(c *fiber.Ctx) error {
		params, page, err := resource.ParseListParams(c, QuerySpec)
		if err != nil {
			return response.FromError(c, err, "Activity")
		}
		result, err := svc.List(c.UserContext(), params)
		if err != nil {
			return response.FromError(c, err, "Activity")
		}
		return response.SuccessWithMeta(c, result.Items, response.CalculateMeta(page.Page, page.Limit, result.Total), "")
	})
}
