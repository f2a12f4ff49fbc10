package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"reportgen/internal/logger"
)

// Local writes files below a root directory that is served as static files.
type Local struct {
	root string
	log  *logger.Logger
}

func NewLocal(root string, log *logger.Logger) *Local {
	return &Local{root: root, log: log.With("service", "LocalBlobStore")}
}

// Root is the directory keys are relative to.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := NewKey(filename)
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := ensureDir(dst); err != nil {
		return "", fmt.Errorf("failed to ensure upload directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	l.log.Debug("Upload stored", "object", key, "bytes", n)
	return key, nil
}

// Delete removes the file for key. A missing file is not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid upload key %q", key)
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ensureDir creates the parent directory of path when it is missing.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
