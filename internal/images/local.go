package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
)

// LocalStore keeps images on the local filesystem under a root
// directory. Records store absolute paths, the same convention the
// WebUI uses for its output folders.
type LocalStore struct {
	root string
	log  *zap.Logger
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		root = "data/images"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, appErrors.NewStorage("init_image_dir", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, appErrors.NewStorage("init_image_dir", err)
	}
	return &LocalStore{root: abs, log: logger.WithModule("images.local")}, nil
}

// Root reports the absolute image directory.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", appErrors.NewStorage("save_image", err)
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", appErrors.NewStorage("save_image", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", appErrors.NewStorage("save_image", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", appErrors.NewStorage("save_image", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", appErrors.NewStorage("save_image", err)
	}

	return full, nil
}

func (s *LocalStore) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewStorage("open_image", err)
	}

	f, err := os.Open(storagePath)
	if err != nil {
		return nil, appErrors.NewStorage("open_image", err)
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, storagePath string) bool {
	if storagePath == "" {
		return false
	}
	if strings.HasPrefix(storagePath, "s3://") {
		// foreign scheme, not ours to judge
		return true
	}
	_, err := os.Stat(storagePath)
	if err == nil {
		return true
	}
	return !errors.Is(err, fs.ErrNotExist)
}

func (s *LocalStore) Remove(ctx context.Context, storagePath string) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("remove_image", err)
	}

	err := os.Remove(storagePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("image already gone", zap.String("path", storagePath))
		return nil
	}
	if err != nil {
		return appErrors.NewStorage("remove_image", err)
	}

	s.log.Info("image deleted", zap.String("path", storagePath))
	return nil
}

func (s *LocalStore) URL(ctx context.Context, storagePath string) (string, bool) {
	return "", false
}

// Ping verifies the image root still exists and is a directory.
func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("ping_images", err)
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return appErrors.NewStorage("ping_images", err)
	}
	if !info.IsDir() {
		return appErrors.NewStorage("ping_images", fmt.Errorf("%s is not a directory", s.root))
	}
	return nil
}
