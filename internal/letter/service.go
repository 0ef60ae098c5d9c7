package letter

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/sanitize"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrFileNotAvailable is returned when a template has no document attached.
var ErrFileNotAvailable = errors.New("letter template has no file")

var AdminQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString, "is_active": store.FilterBool},
	Sortable:      []string{"name", "category", "created_at", "download_count"},
	DefaultSort:   "name",
	SearchColumns: []string{"name", "description"},
}

var PublicQuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString},
	Sortable:      []string{"name", "category", "download_count"},
	DefaultSort:   "name",
	SearchColumns: []string{"name", "description"},
}

var DownloadQuerySpec = store.QuerySpec{
	Filters:     map[string]store.FilterKind{"letter_template_id": store.FilterInt},
	Sortable:    []string{"created_at"},
	DefaultSort: "-created_at",
}

type CreateInput struct {
	Name         string   `json:"name" validate:"required,max=150"`
	Category     string   `json:"category" validate:"required,max=50"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements" validate:"omitempty,dive,max=200"`
	IsActive     *bool    `json:"is_active"`
}

type UpdateInput struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=150"`
	Category     *string   `json:"category" validate:"omitempty,min=1,max=50"`
	Description  *string   `json:"description"`
	Requirements *[]string `json:"requirements" validate:"omitempty,dive,max=200"`
	IsActive     *bool     `json:"is_active"`
}

// Visitor identifies who downloaded a template.
type Visitor struct {
	IP        string
	UserAgent string
}

type Service struct {
	repo      *store.Repository[models.LetterTemplate]
	downloads *store.Repository[models.DownloadLog]
	uploader  *storage.Uploader
	log       *logrus.Logger
}

func NewService(db *gorm.DB, uploader *storage.Uploader, log *logrus.Logger) *Service {
	return &Service{
		repo:      store.NewRepository[models.LetterTemplate](db, AdminQuerySpec),
		downloads: store.NewRepository[models.DownloadLog](db, DownloadQuerySpec),
		uploader:  uploader,
		log:       log,
	}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.LetterTemplate], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.LetterTemplate, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.LetterTemplate, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	name, category := sanitize.Text(in.Name), strings.TrimSpace(in.Category)
	if err := store.Required(map[string]*string{"name": &name, "category": &category}); err != nil {
		return nil, err
	}
	slug, err := store.UniqueSlug(ctx, s.repo.DB(), &models.LetterTemplate{}, name, 0)
	if err != nil {
		return nil, err
	}

	t := &models.LetterTemplate{
		Name:         name,
		Slug:         slug,
		Category:     category,
		Description:  sanitize.Text(in.Description),
		Requirements: requirementsJSON(in.Requirements),
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.LetterTemplate, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	name, category := sanitize.TextPtr(in.Name), sanitize.TrimPtr(in.Category)
	if err := store.Required(map[string]*string{"name": name, "category": category}); err != nil {
		return nil, err
	}

	changes := store.Changes{}
	if name != nil {
		slug, err := store.UniqueSlug(ctx, s.repo.DB(), &models.LetterTemplate{}, *name, id)
		if err != nil {
			return nil, err
		}
		changes["name"] = *name
		changes["slug"] = slug
	}
	store.Set(changes, "category", category)
	if in.Description != nil {
		changes["description"] = sanitize.Text(*in.Description)
	}
	if in.Requirements != nil {
		changes["requirements"] = requirementsJSON(*in.Requirements)
	}
	store.Set(changes, "is_active", in.IsActive)

	return s.repo.Update(ctx, id, changes)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// AttachFile uploads a document and points the template at it. A previously
// attached file is removed from storage afterwards.
func (s *Service) AttachFile(ctx context.Context, id uint, fh *multipart.FileHeader) (*models.LetterTemplate, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	obj, err := s.uploader.Upload(ctx, fh, storage.CategoryDocument)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, store.Changes{
		"file_url":  obj.URL,
		"file_name": obj.FileName,
		"file_size": obj.Size,
		"mime_type": obj.MimeType,
	})
	if err != nil {
		s.discard(ctx, obj.URL)
		return nil, err
	}
	if current.Downloadable() {
		s.discard(ctx, *current.FileURL)
	}
	return updated, nil
}

// DetachFile clears the document. file_url goes back to null.
func (s *Service) DetachFile(ctx context.Context, id uint) (*models.LetterTemplate, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Downloadable() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, store.Changes{
		"file_url":  nil,
		"file_name": "",
		"file_size": 0,
		"mime_type": "",
	})
	if err != nil {
		return nil, err
	}
	s.discard(ctx, *current.FileURL)
	return updated, nil
}

func (s *Service) discard(ctx context.Context, url string) {
	if err := s.uploader.Delete(ctx, url); err != nil {
		s.log.WithError(err).WithField("url", url).Warn("failed to remove letter file")
	}
}

func (s *Service) ListActive(ctx context.Context, p store.ListParams) (store.Page[models.LetterTemplate], error) {
	public := store.NewRepository[models.LetterTemplate](s.repo.DB(), PublicQuerySpec)
	return public.List(ctx, p.With("is_active", true))
}

func (s *Service) GetActive(ctx context.Context, slug string) (*models.LetterTemplate, error) {
	var t models.LetterTemplate
	err := s.repo.DB().WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&t).Error
	if err != nil {
		return nil, store.Translate(err)
	}
	return &t, nil
}

// Download records one download of an active template and returns it.
// A template without a file yields ErrFileNotAvailable and is not counted.
func (s *Service) Download(ctx context.Context, slug string, v Visitor) (*models.LetterTemplate, error) {
	var t *models.LetterTemplate
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.LetterTemplate
		if err := tx.Where("slug = ? AND is_active = ?", slug, true).First(&rec).Error; err != nil {
			return store.Translate(err)
		}
		if !rec.Downloadable() {
			return ErrFileNotAvailable
		}

		if err := tx.Model(&models.LetterTemplate{}).Where("id = ?", rec.ID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error; err != nil {
			return store.Translate(err)
		}
		entry := models.DownloadLog{LetterTemplateID: rec.ID, IP: v.IP, UserAgent: truncate(v.UserAgent, 255)}
		if err := tx.Create(&entry).Error; err != nil {
			return store.Translate(err)
		}
		rec.DownloadCount++
		t = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Downloads(ctx context.Context, p store.ListParams) (store.Page[models.DownloadLog], error) {
	return s.downloads.List(ctx, p)
}

func requirementsJSON(items []string) datatypes.JSON {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if it = sanitize.Text(it); it != "" {
			clean = append(clean, it)
		}
	}
	raw, _ := json.Marshal(clean)
	return datatypes.JSON(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
