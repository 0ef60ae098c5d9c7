package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Input replaces the whole profile.
type Input struct {
	VillageName string   `json:"village_name" validate:"required,max=150"`
	History     string   `json:"history"`
	Vision      string   `json:"vision"`
	Missions    []string `json:"missions" validate:"omitempty,dive,max=500"`
	Area        string   `json:"area" validate:"max=100"`
	Boundaries  string   `json:"boundaries"`
	Address     string   `json:"address" validate:"max=300"`
	MapEmbedURL string   `json:"map_embed_url" validate:"omitempty,url,max=1000"`
	LogoURL     string   `json:"logo_url" validate:"max=500"`
}

// Service manages the single village profile row.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns ErrNotFound until a profile has been saved.
func (s *Service) Get(ctx context.Context) (*models.VillageProfile, error) {
	var p models.VillageProfile
	if err := s.db.WithContext(ctx).Order("id").First(&p).Error; err != nil {
		return nil, store.Translate(err)
	}
	return &p, nil
}

func (s *Service) Save(ctx context.Context, in Input) (*models.VillageProfile, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	villageName := sanitize.Text(in.VillageName)
	if err := store.Required(map[string]*string{"village_name": &villageName}); err != nil {
		return nil, err
	}

	missions := make([]string, 0, len(in.Missions))
	for _, m := range in.Missions {
		if m = sanitize.Text(m); m != "" {
			missions = append(missions, m)
		}
	}
	raw, _ := json.Marshal(missions)

	var saved *models.VillageProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.VillageProfile
		err := tx.Order("id").First(&p).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return store.Translate(err)
		}

		p.VillageName = villageName
		p.History = sanitize.HTML(in.History)
		p.Vision = sanitize.HTML(in.Vision)
		p.Missions = datatypes.JSON(raw)
		p.Area = sanitize.Text(in.Area)
		p.Boundaries = sanitize.Text(in.Boundaries)
		p.Address = sanitize.Text(in.Address)
		p.MapEmbedURL = strings.TrimSpace(in.MapEmbedURL)
		p.LogoURL = strings.TrimSpace(in.LogoURL)

		if err := tx.Save(&p).Error; err != nil {
			return store.Translate(err)
		}
		saved = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) MountAdmin(r fiber.Router) {
	r.Get("/", middleware.RequireCapability(permission.ContentRead), h.Get)
	r.Put("/", middleware.RequireCapability(permission.ProfileManage), h.Save)
}

func (h *Handler) MountPublic(r fiber.Router) {
	r.Get("/", h.Get)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.svc.Get(c.UserContext())
	if err != nil {
		return response.FromError(c, err, "Village profile")
	}
	return response.Success(c, p, "")
}

func (h *Handler) Save(c *fiber.Ctx) error {
	var in Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	p, err := h.svc.Save(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err, "Village profile")
	}
	return response.Success(c, p, "Village profile saved successfully")
}
