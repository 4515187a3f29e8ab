// Package images stores the generated image files that records point
// at. The local backend mirrors the WebUI output directory layout;
// the s3 backend suits shared deployments.
package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// BlobStore reads and writes image files by storage path. Save
// returns the path to persist on the record.
type BlobStore interface {
	Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error)

	// Open streams a stored image.
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Exists reports whether the image is still present. Lookups that
	// cannot be decided (foreign paths, transient backend errors)
	// count as present so rows are never pruned on doubt.
	Exists(ctx context.Context, storagePath string) bool

	// Remove deletes a stored image. Absent files are not an error.
	Remove(ctx context.Context, storagePath string) error

	// URL returns a directly servable URL when the backend has one.
	URL(ctx context.Context, storagePath string) (string, bool)

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

// StorageKey builds a date-sharded key for a new image.
func StorageKey(now time.Time, id, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%d/%d/%d/%s%s", now.Year(), int(now.Month()), now.Day(), id, ext)
}

// ContentTypeByPath guesses the MIME type from the file extension.
func ContentTypeByPath(storagePath string) string {
	switch strings.ToLower(path.Ext(storagePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// ExtByContentType maps a MIME type back to a file extension.
func ExtByContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
