// Package storage provides the object store that holds uploaded videos.
// It defines the ObjectStore interface (port) for hexagonal architecture and
// implementations for an S3-compatible remote store and local disk. Both
// produce durable references with the same public path layout, so storage
// keys can always be recovered from a reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	// Bucket is the bucket holding all videos. Its name is also the path
	// segment that key derivation looks for in a durable reference.
	Bucket = "videos"
	// ContentType is the fixed content type of uploaded videos.
	ContentType = "video/webm"
	// PublicPathPrefix precedes the bucket name in public object URLs.
	PublicPathPrefix = "/storage/v1/object/public/"
)

var (
	// ErrNotConfigured is returned when writes are attempted without
	// administrative credentials.
	ErrNotConfigured = errors.New("object store credentials are not configured")
	// ErrInvalidKey is returned when an asset ID or filename cannot form a key.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrInvalidReference is returned when no storage key can be derived
	// from a durable reference.
	ErrInvalidReference = errors.New("invalid durable reference")
)

// StoreError reports a failed object store operation with its cause.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ObjectStore defines the interface for durable video storage.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// EnsureBucket makes sure the videos bucket exists. It is idempotent,
	// logs failures and never aborts startup.
	EnsureBucket(ctx context.Context)

	// Put stores data under <assetID>/<filename> and returns the durable
	// reference (public URL) of the object.
	// Failures are reported as *StoreError.
	Put(ctx context.Context, assetID string, data []byte, filename string) (string, error)

	// Remove deletes the object at key. It returns false on any failure
	// instead of an error because it only runs on best-effort paths.
	Remove(ctx context.Context, key string) bool

	// PublicURL derives the durable reference of an object without any
	// network call, so a reference can be recomputed for an object whose
	// upload was never recorded. Put builds its result with it.
	PublicURL(assetID, filename string) string
}

// SanitizeFilename reduces a client-supplied name to its base name.
// It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}

// ObjectKey builds the storage key of an asset's file.
func ObjectKey(assetID, filename string) (string, error) {
	if assetID == "" || strings.ContainsAny(assetID, `/\`) || assetID == "." || assetID == ".." {
		return "", ErrInvalidKey
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrInvalidKey
	}
	return assetID + "/" + name, nil
}

// PublicURL builds https://<host>/storage/v1/object/public/videos/<id>/<filename>
// under base.
func PublicURL(base, assetID, filename string) string {
	return strings.TrimRight(base, "/") + PublicPathPrefix + Bucket + "/" +
		url.PathEscape(assetID) + "/" + url.PathEscape(SanitizeFilename(filename))
}

// KeyFromReference derives the storage key from a durable reference: the
// path segments following the first "videos" segment, joined with "/".
// The key was fixed at upload time and does not follow later renames.
func KeyFromReference(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part != Bucket {
			continue
		}
		rest := parts[i+1:]
		if len(rest) == 0 || strings.Join(rest, "") == "" {
			return "", fmt.Errorf("%w: no path after %q", ErrInvalidReference, Bucket)
		}
		return strings.Join(rest, "/"), nil
	}
	return "", fmt.Errorf("%w: no %q segment", ErrInvalidReference, Bucket)
}
