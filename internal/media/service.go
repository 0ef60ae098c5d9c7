package media

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/store"
	"gorm.io/gorm"
)

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"category": store.FilterString, "mime_type": store.FilterString, "uploaded_by": store.FilterInt},
	Sortable:      []string{"created_at", "file_name", "size"},
	DefaultSort:   "-created_at",
	SearchColumns: []string{"file_name"},
}

// Service stores uploads and keeps the library index in step with the store.
type Service struct {
	db       *gorm.DB
	repo     *store.Repository[models.MediaFile]
	uploader *storage.Uploader
}

func NewService(db *gorm.DB, uploader *storage.Uploader) *Service {
	return &Service{db: db, repo: store.NewRepository[models.MediaFile](db, QuerySpec), uploader: uploader}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.MediaFile], error) {
	return s.repo.List(ctx, p)
}

// Upload stores the file and indexes it under the calling principal.
// The stored object is removed again if it cannot be indexed.
func (s *Service) Upload(ctx context.Context, fh *multipart.FileHeader, category storage.Category) (*models.MediaFile, error) {
	obj, err := s.uploader.Upload(ctx, fh, category)
	if err != nil {
		return nil, err
	}

	rec := &models.MediaFile{
		FileName: obj.FileName,
		URL:      obj.URL,
		MimeType: obj.MimeType,
		Category: string(obj.Category),
		Size:     obj.Size,
	}
	if obj.Category == storage.CategoryImage {
		if w, h, err := imageDimensions(fh); err == nil {
			rec.Width, rec.Height = &w, &h
		}
	}
	if p := principal.FromContext(ctx); p != nil {
		id := p.ID
		rec.UploadedBy = &id
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		_ = s.uploader.Delete(ctx, obj.URL)
		return nil, err
	}
	return rec, nil
}

// Delete removes the stored object and its library entry. Files uploaded
// before the library existed have no entry and are still removed. A file
// still attached to a letter template is refused.
func (s *Service) Delete(ctx context.Context, url string) error {
	var attached int64
	err := s.db.WithContext(ctx).Model(&models.LetterTemplate{}).Where("file_url = ?", url).Count(&attached).Error
	if err != nil {
		return store.Translate(err)
	}
	if attached > 0 {
		return store.Conflict("File is still attached to a letter template")
	}

	if err := s.uploader.Delete(ctx, url); err != nil {
		return err
	}
	rec, err := s.repo.FindBy(ctx, "url", url)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, rec.ID)
}

func imageDimensions(file *multipart.FileHeader) (int, int, error) {
	f, err := file.Open()
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
