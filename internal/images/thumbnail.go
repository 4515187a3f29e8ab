package images

import (
	"context"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
)

// Thumbnailer renders and caches gallery thumbnails on local disk.
// Thumbnails are derived data; losing the cache only costs a re-render.
type Thumbnailer struct {
	dir    string
	width  int
	height int
	blobs  BlobStore
	log    *zap.Logger
}

// NewThumbnailer creates the cache directory when missing. Zero
// dimensions fall back to 256x256.
func NewThumbnailer(dir string, width, height int, blobs BlobStore) (*Thumbnailer, error) {
	if dir == "" {
		dir = "data/thumbnails"
	}
	if width <= 0 {
		width = 256
	}
	if height <= 0 {
		height = 256
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, appErrors.NewStorage("init_thumbnail_dir", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, appErrors.NewStorage("init_thumbnail_dir", err)
	}

	return &Thumbnailer{
		dir:    abs,
		width:  width,
		height: height,
		blobs:  blobs,
		log:    logger.WithModule("images.thumbnail"),
	}, nil
}

// Thumbnail returns the path of a cached thumbnail for the record,
// rendering it from the stored image on first use.
func (t *Thumbnailer) Thumbnail(ctx context.Context, id, storagePath string) (string, error) {
	cached := t.cachePath(id)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	src, err := t.blobs.Open(ctx, storagePath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return "", appErrors.NewStorage("decode_image", err)
	}

	thumb := imaging.Fit(img, t.width, t.height, imaging.Lanczos)
	if err := imaging.Save(thumb, cached); err != nil {
		return "", appErrors.NewStorage("save_thumbnail", err)
	}

	t.log.Debug("thumbnail rendered", zap.String("id", id))
	return cached, nil
}

// Invalidate drops the cached thumbnail for a deleted record.
func (t *Thumbnailer) Invalidate(id string) {
	if err := os.Remove(t.cachePath(id)); err != nil && !os.IsNotExist(err) {
		t.log.Warn("thumbnail cleanup failed", zap.String("id", id), zap.Error(err))
	}
}

func (t *Thumbnailer) cachePath(id string) string {
	return filepath.Join(t.dir, id+".jpg")
}
