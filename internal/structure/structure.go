package structure

import (
	"context"

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
	Filters:       map[string]store.FilterKind{"is_active": store.FilterBool, "period": store.FilterString},
	Sortable:      []string{"sort_order", "name", "position", "created_at"},
	DefaultSort:   "sort_order",
	SearchColumns: []string{"name", "position"},
}

type CreateInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	Position  string `json:"position" validate:"required,max=100"`
	NIP       string `json:"nip" validate:"max=30"`
	PhotoURL  string `json:"photo_url" validate:"max=500"`
	Period    string `json:"period" validate:"max=30"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateInput struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Position  *string `json:"position" validate:"omitempty,min=1,max=100"`
	NIP       *string `json:"nip" validate:"omitempty,max=30"`
	PhotoURL  *string `json:"photo_url" validate:"omitempty,max=500"`
	Period    *string `json:"period" validate:"omitempty,max=30"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

type Service struct {
	repo *store.Repository[models.OrgMember]
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.OrgMember](db, QuerySpec)}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.OrgMember], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.OrgMember, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.OrgMember, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	name, position := sanitize.Text(in.Name), sanitize.Text(in.Position)
	if err := store.Required(map[string]*string{"name": &name, "position": &position}); err != nil {
		return nil, err
	}
	m := &models.OrgMember{
		Name:      name,
		Position:  position,
		NIP:       sanitize.Text(in.NIP),
		PhotoURL:  in.PhotoURL,
		Period:    sanitize.Text(in.Period),
		SortOrder: in.SortOrder,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.OrgMember, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	name, position := sanitize.TextPtr(in.Name), sanitize.TextPtr(in.Position)
	if err := store.Required(map[string]*string{"name": name, "position": position}); err != nil {
		return nil, err
	}
	changes := store.Changes{}
	store.Set(changes, "name", name)
	store.Set(changes, "position", position)
	store.Set(changes, "nip", sanitize.TextPtr(in.NIP))
	store.Set(changes, "photo_url", in.PhotoURL)
	store.Set(changes, "period", sanitize.TextPtr(in.Period))
	store.Set(changes, "sort_order", in.SortOrder)
	store.Set(changes, "is_active", in.IsActive)
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// Active lists the current structure in display order.
func (s *Service) Active(ctx context.Context) ([]models.OrgMember, error) {
	page, err := s.repo.List(ctx, store.ListParams{Filters: []store.Filter{{Column: "is_active", Value: true}}})
	return page.Items, err
}

func Mount(r fiber.Router, svc *Service) {
	resource.New[models.OrgMember, CreateInput, UpdateInput]("Structure member", svc, QuerySpec).
		Mount(r, middleware.RequireCapability(permission.ContentRead), middleware.RequireCapability(permission.StructureManage))
}

func MountPublic(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		members, err := svc.Active(c.UserContext())
		if err != nil {
			return response.FromError(c, err, "Structure member")
		}
		return response.Success(c, members, "")
	})
}
