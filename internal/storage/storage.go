package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/Kyz7/desa/internal/store"
	"github.com/gabriel-vasile/mimetype"
)

// ErrForeignURL is returned when asked to delete something that was not
// stored by this store.
var ErrForeignURL = errors.New("url is not a stored upload")

type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
)

func (c Category) folder() string {
	if c == CategoryDocument {
		return "documents"
	}
	return "photos"
}

var allowed = map[Category][]string{
	CategoryImage: {"image/jpeg", "image/png", "image/gif", "image/webp"},
	CategoryDocument: {
		"application/pdf",
		"application/msword",
		"application/x-ole-storage",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
	},
}

var extensions = map[string]string{
	"image/jpeg":                                                              ".jpg",
	"image/png":                                                               ".png",
	"image/gif":                                                               ".gif",
	"image/webp":                                                              ".webp",
	"application/pdf":                                                         ".pdf",
	"application/msword":                                                      ".doc",
	"application/x-ole-storage":                                               ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.oasis.opendocument.text":                                 ".odt",
}

type Limits struct {
	MaxImageSize    int64
	MaxDocumentSize int64
}

func (l Limits) max(c Category) int64 {
	if c == CategoryDocument {
		return l.MaxDocumentSize
	}
	return l.MaxImageSize
}

// Store puts objects somewhere publicly reachable.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
	Mode() string
}

// Object describes a stored upload.
type Object struct {
	URL      string   `json:"url"`
	FileName string   `json:"file_name"`
	MimeType string   `json:"mime_type"`
	Size     int64    `json:"size"`
	Category Category `json:"category"`
}

func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryImage, "":
		return CategoryImage, nil
	case CategoryDocument:
		return CategoryDocument, nil
	}
	return "", store.Invalid("category", "category must be one of: image, document")
}

// Validate sniffs the file content and checks it against the category allow
// list and size limit. The declared Content-Type header is ignored.
func Validate(fh *multipart.FileHeader, category Category, limits Limits) (string, error) {
	if fh == nil {
		return "", store.Invalid("file", "file is required")
	}
	if fh.Size == 0 {
		return "", store.Invalid("file", "file is empty")
	}
	if max := limits.max(category); max > 0 && fh.Size > max {
		return "", store.Invalid("file", fmt.Sprintf("file exceeds the %d byte limit for %s uploads", max, category))
	}

	f, err := fh.Open()
	if err != nil {
		return "", store.Invalid("file", "file cannot be read")
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", store.Invalid("file", "file cannot be read")
	}

	for m := detected; m != nil; m = m.Parent() {
		for _, ok := range allowed[category] {
			if m.Is(ok) {
				return ok, nil
			}
		}
	}
	return "", store.Invalid("file", fmt.Sprintf("%s is not an allowed %s type", detected.String(), category))
}

// Uploader validates and stores multipart uploads.
type Uploader struct {
	store  Store
	limits Limits
	newKey func(category Category, ext string) string
}

func NewUploader(st Store, limits Limits) *Uploader {
	return &Uploader{store: st, limits: limits, newKey: objectKey}
}

func (u *Uploader) Upload(ctx context.Context, fh *multipart.FileHeader, category Category) (*Object, error) {
	mime, err := Validate(fh, category, u.limits)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	ext := extensions[mime]
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(fh.Filename))
	}

	url, err := u.store.Put(ctx, u.newKey(category, ext), src, fh.Size, mime)
	if err != nil {
		return nil, fmt.Errorf("%w: upload failed: %v", store.ErrUnavailable, err)
	}
	return &Object{
		URL:      url,
		FileName: filepath.Base(fh.Filename),
		MimeType: mime,
		Size:     fh.Size,
		Category: category,
	}, nil
}

func (u *Uploader) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	return u.store.Delete(ctx, url)
}

func (u *Uploader) Mode() string {
	return u.store.Mode()
}
