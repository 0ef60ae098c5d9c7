package message

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

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"is_read": store.FilterBool},
	Sortable:      []string{"created_at", "name", "subject"},
	DefaultSort:   "-created_at",
	SearchColumns: []string{"name", "email", "subject"},
}

// CreateInput is the public contact form.
type CreateInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=100"`
	Phone   string `json:"phone" validate:"max=30"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
	IP      string `json:"-"`
}

type UpdateInput struct {
	IsRead *bool `json:"is_read"`
}

type Service struct {
	repo *store.Repository[models.ContactMessage]
	now  func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{repo: store.NewRepository[models.ContactMessage](db, QuerySpec), now: time.Now}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.ContactMessage], error) {
	return s.repo.List(ctx, p)
}

// Get opens a message, marking it read on first access.
func (s *Service) Get(ctx context.Context, id uint) (*models.ContactMessage, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil || m.IsRead {
		return m, err
	}
	return s.repo.Update(ctx, id, store.Changes{"is_read": true, "read_at": s.now()})
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ContactMessage, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	m := &models.ContactMessage{
		Name:    sanitize.Text(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   sanitize.Text(in.Phone),
		Subject: sanitize.Text(in.Subject),
		Body:    sanitize.Text(in.Body),
		IP:      in.IP,
	}
	if err := store.Required(map[string]*string{"name": &m.Name, "subject": &m.Subject, "body": &m.Body}); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.ContactMessage, error) {
	changes := store.Changes{}
	if in.IsRead != nil {
		changes["is_read"] = *in.IsRead
		if *in.IsRead {
			changes["read_at"] = s.now()
		} else {
			changes["read_at"] = nil
		}
	}
	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CountUnread(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, store.Filter{Column: "is_read", Value: false})
}

// Mount registers /api/admin/messages. Messages are created through the
// public contact form only.
func Mount(r fiber.Router, svc *Service) {
	h := resource.New[models.ContactMessage, CreateInput, UpdateInput]("Message", svc, QuerySpec)
	read := middleware.RequireCapability(permission.MessagesRead)
	manage := middleware.RequireCapability(permission.MessagesManage)

	r.Get("/", read, h.List)
	r.Get("/:id", read, h.Get)
	r.Patch("/:id", manage, h.Update)
	r.Delete("/:id", manage, h.Delete)
}

func MountPublic(r fiber.Router, svc *Service, limiter fiber.Handler) {
	r.Post("/", limiter, func(c *fiber.Ctx) error {
		var in CreateInput
		if err := c.BodyParser(&in); err != nil {
			return response.BadRequest(c, "Invalid request body", nil)
		}
		in.IP = c.IP()
		m, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return response.FromError(c, err, "Message")
		}
		return response.Created(c, fiber.Map{"id": m.ID}, "Message sent successfully")
	})
}
