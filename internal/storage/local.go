package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that LocalStore implements ObjectStore.
var _ ObjectStore = (*LocalStore)(nil)

// LocalStore implements ObjectStore on local disk.
// Objects live under <root>/videos/<id>/<filename> and are served by
// Handler at the same public path the remote store uses, so references
// and key derivation behave identically.
type LocalStore struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

// NewLocalStore creates a new LocalStore instance.
// If root is empty, a directory under os.TempDir() is used.
// The bucket directory is created if it doesn't exist.
func NewLocalStore(root, baseURL string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = filepath.Join(os.TempDir(), "vidrpy")
	}

	if err := os.MkdirAll(filepath.Join(root, Bucket), 0750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &LocalStore{root: root, baseURL: baseURL, logger: logger}, nil
}

// Root returns the storage directory path.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) bucketDir() string {
	return filepath.Join(s.root, Bucket)
}

// EnsureBucket creates the bucket directory.
func (s *LocalStore) EnsureBucket(_ context.Context) {
	if err := os.MkdirAll(s.bucketDir(), 0750); err != nil {
		s.logger.Error("failed to create bucket",
			slog.String("bucket", s.bucketDir()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("bucket exists", slog.String("bucket", s.bucketDir()))
}

// Put writes data to <root>/videos/<assetID>/<filename>.
// The file is written to a temp file first and renamed into place.
func (s *LocalStore) Put(ctx context.Context, assetID string, data []byte, filename string) (string, error) {
	select {
	case <-ctx.Done():
		return "", &StoreError{Op: "put", Key: assetID + "/" + filename, Err: ctx.Err()}
	default:
	}

	key, err := ObjectKey(assetID, filename)
	if err != nil {
		return "", &StoreError{Op: "put", Key: assetID + "/" + filename, Err: err}
	}

	dst := filepath.Join(s.bucketDir(), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", &StoreError{Op: "put", Key: key, Err: fmt.Errorf("create object directory: %w", err)}
	}

	f, err := os.CreateTemp(filepath.Dir(dst), ".upload_*")
	if err != nil {
		return "", &StoreError{Op: "put", Key: key, Err: fmt.Errorf("create temp file: %w", err)}
	}

	tmpName := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", &StoreError{Op: "put", Key: key, Err: fmt.Errorf("write temp file: %w", err)}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &StoreError{Op: "put", Key: key, Err: fmt.Errorf("close temp file: %w", err)}
	}

	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", &StoreError{Op: "put", Key: key, Err: fmt.Errorf("rename object: %w", err)}
	}

	s.logger.Info("stored object",
		slog.String("asset_id", assetID),
		slog.String("storage_key", key),
		slog.Int("size_bytes", len(data)),
	)
	return s.PublicURL(assetID, filename), nil
}

// Remove deletes the object at key. A missing object counts as removed.
func (s *LocalStore) Remove(ctx context.Context, key string) bool {
	select {
	case <-ctx.Done():
		s.logger.Error("failed to delete object",
			slog.String("storage_key", key),
			slog.String("error", ctx.Err().Error()),
		)
		return false
	default:
	}

	p, ok := s.objectPath(key)
	if !ok {
		s.logger.Error("failed to delete object",
			slog.String("storage_key", key),
			slog.String("error", ErrInvalidKey.Error()),
		)
		return false
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to delete object",
			slog.String("storage_key", key),
			slog.String("error", err.Error()),
		)
		return false
	}

	// Drop the asset directory once empty; errors are irrelevant here.
	if dir := filepath.Dir(p); dir != s.bucketDir() {
		_ = os.Remove(dir)
	}

	s.logger.Info("deleted object", slog.String("storage_key", key))
	return true
}

// objectPath maps key to a file path that stays inside the bucket directory.
func (s *LocalStore) objectPath(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	bucket := s.bucketDir()
	p := filepath.Join(bucket, filepath.FromSlash(key))
	if p == bucket || !strings.HasPrefix(p, bucket+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

// PublicURL derives the public URL of an object.
func (s *LocalStore) PublicURL(assetID, filename string) string {
	return PublicURL(s.baseURL, assetID, filename)
}

// Handler serves stored objects read-only. Mount it at
// PublicPathPrefix + Bucket + "/".
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(PublicPathPrefix+Bucket+"/", http.FileServer(http.Dir(s.bucketDir())))
}
