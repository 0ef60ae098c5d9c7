package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore writes uploads below dir and serves them from publicPath.
type LocalStore struct {
	dir        string
	publicPath string
}

func NewLocalStore(dir, publicPath string) (*LocalStore, error) {
	for _, sub := range []string{"", CategoryImage.folder(), CategoryDocument.folder()} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Join(dir, sub), err)
		}
	}
	return &LocalStore{dir: dir, publicPath: "/" + strings.Trim(publicPath, "/")}, nil
}

func (s *LocalStore) Mode() string { return "local" }

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) PublicPath() string { return s.publicPath }

func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return path.Join(s.publicPath, key), nil
}

// Delete removes a file previously returned by Put. Paths outside the upload
// directory are refused.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.publicPath+"/")
	if !ok {
		return fmt.Errorf("%w: path outside uploads directory", ErrForeignURL)
	}

	base, err := filepath.Abs(s.dir)
	if err != nil {
		return fmt.Errorf("invalid base path: %w", err)
	}
	target, err := filepath.Abs(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return fmt.Errorf("%w: path outside uploads directory", ErrForeignURL)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func objectKey(category Category, ext string) string {
	return fmt.Sprintf("%s/%s-%s%s",
		category.folder(),
		time.Now().Format("20060102-150405"),
		uuid.New().String()[:8],
		ext,
	)
}
