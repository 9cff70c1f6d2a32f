package asset

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an asset cannot be found by ID.
	ErrNotFound = errors.New("asset not found")
	// ErrPersistence marks a record store write that failed on a primary path.
	ErrPersistence = errors.New("asset persistence failed")
	// ErrInvalidStatus is returned for a status outside the four persisted values.
	ErrInvalidStatus = errors.New("invalid upload status")
	// ErrInvalidTransition is returned when a track cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidPatch is returned for malformed metadata updates.
	ErrInvalidPatch = errors.New("invalid asset update")
	// ErrUploadInProgress is returned when another upload holds the asset lock.
	ErrUploadInProgress = errors.New("upload already in progress")
)

// Repository defines the interface for asset persistence.
// It acts as a port in the hexagonal architecture pattern.
// Every mutation is atomic for a single asset row.
type Repository interface {
	// Create persists a new asset.
	Create(ctx context.Context, a *Asset) error

	// Get retrieves a full snapshot of an asset.
	// Returns ErrNotFound if the asset does not exist.
	Get(ctx context.Context, id string) (*Asset, error)

	// ListByOwner returns all assets of an owner, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Asset, error)

	// Update applies the non-nil fields of p and re-stamps LastModified.
	// Returns ErrNotFound if the asset does not exist.
	Update(ctx context.Context, id string, p Patch) (*Asset, error)

	// Delete removes an asset permanently.
	// It reports whether a row existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// FailStaleUploads moves every track still uploading whose asset was last
	// modified before cutoff to failed, and returns the number of assets changed.
	FailStaleUploads(ctx context.Context, cutoff time.Time) (int64, error)
}
