// Package storage keeps uploaded image and video files for report records.
// Records store the returned key, "uploads/<uuid><ext>", which is also the
// path under the static file root in local mode.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reportgen/internal/config"
	"reportgen/internal/logger"
)

// UploadPrefix is the directory part of every key.
const UploadPrefix = "uploads"

// BlobStore saves uploaded files.
type BlobStore interface {
	// Put stores r under a fresh key derived from the original file name and
	// returns the key.
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// New returns the store selected by cfg.StorageMode.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (BlobStore, error) {
	switch cfg.StorageMode {
	case config.StorageLocal:
		return NewLocal(cfg.UploadDir, log), nil
	case config.StorageGCS:
		return NewGCS(ctx, cfg.GCSBucket, log)
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", cfg.StorageMode)
	}
}

// Close releases the client behind b, if it holds one.
func Close(b BlobStore) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewKey returns "uploads/<uuid><ext>" keeping the extension of filename.
func NewKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(UploadPrefix, strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
}

// ContentType guesses the MIME type of a key from its extension.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

func validKey(key string) bool {
	return strings.HasPrefix(key, UploadPrefix+"/") && !strings.Contains(key, "..")
}
