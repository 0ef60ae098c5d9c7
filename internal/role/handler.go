package role

import (
	"context"

	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Role is one entry of the read-only role catalogue.
type Role struct {
	Name         permission.Role         `json:"name"`
	Level        int                     `json:"level"`
	Capabilities []permission.Capability `json:"capabilities"`
	UserCount    int64                   `json:"user_count"`
}

type Catalogue struct {
	Roles        []Role                  `json:"roles"`
	Capabilities []permission.Capability `json:"capabilities"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context) (*Catalogue, error) {
	counts, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}
	out := &Catalogue{Roles: make([]Role, 0), Capabilities: permission.All()}
	for _, r := range permission.Roles() {
		out.Roles = append(out.Roles, describe(r, counts[string(r)]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, name string) (*Role, error) {
	r := permission.Role(name)
	if !permission.IsKnown(r) {
		return nil, store.ErrNotFound
	}
	counts, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}
	out := describe(r, counts[name])
	return &out, nil
}

func (s *Service) counts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}
	err := s.db.WithContext(ctx).Model(&models.AdminUser{}).
		Select("role, count(*) AS total").Group("role").Scan(&rows).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Role] = r.Total
	}
	return out, nil
}

func describe(r permission.Role, users int64) Role {
	return Role{Name: r, Level: permission.Level(r), Capabilities: permission.Capabilities(r), UserCount: users}
}

// Mount registers /api/admin/roles. Roles are fixed in code, so the
// catalogue has no mutating routes.
func Mount(r fiber.Router, svc *Service) {
	read := middleware.RequireCapability(permission.UsersRead)

	r.Get("/", read, func(c *fiber.Ctx) error {
		out, err := svc.List(c.UserContext())
		if err != nil {
			return response.FromError(c, err, "Role")
		}
		return response.Success(c, out, "")
	})
	r.Get("/:name", read, func(c *fiber.Ctx) error {
		out, err := svc.Get(c.UserContext(), c.Params("name"))
		if err != nil {
			return response.FromError(c, err, "Role")
		}
		return response.Success(c, out, "")
	})
}
