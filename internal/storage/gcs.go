package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"reportgen/internal/logger"
)

// GCS writes files to a Google Cloud Storage bucket using application
// default credentials.
type GCS struct {
	bucket string
	client *gcs.Client
	log    *logger.Logger
}

func NewGCS(ctx context.Context, bucket string, log *logger.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{bucket: bucket, client: client, log: log.With("service", "GCSBlobStore")}, nil
}

func (g *GCS) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := NewKey(filename)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ContentType(key)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	g.log.Debug("Upload stored", "bucket", g.bucket, "object", key, "bytes", n)
	return key, nil
}

// Delete removes the object for key. A missing object is not an error.
func (g *GCS) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid upload key %q", key)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, g.bucket, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
