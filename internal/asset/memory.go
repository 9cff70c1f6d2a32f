package asset

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; use GormRepository in production.
type MemoryRepository struct {
	mu     sync.RWMutex
	assets map[string]*Asset
	now    func() time.Time
}

// NewMemoryRepository creates a new in-memory asset repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		assets: make(map[string]*Asset),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a clone of a. An existing asset with the same ID is replaced.
func (r *MemoryRepository) Create(_ context.Context, a *Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = a.Clone()
	return nil
}

// Get retrieves an asset by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// ListByOwner returns clones of the owner's assets, newest first.
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Asset, 0)
	for _, a := range r.assets {
		if a.OwnerID == ownerID {
			result = append(result, a.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Update applies p under the write lock and returns the new snapshot.
func (r *MemoryRepository) Update(_ context.Context, id string, p Patch) (*Asset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.apply(a, r.now())
	return a.Clone(), nil
}

// Delete removes an asset from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[id]; !ok {
		return false, nil
	}
	delete(r.assets, id)
	return true, nil
}

// FailStaleUploads demotes stale uploading tracks to failed.
func (r *MemoryRepository) FailStaleUploads(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var n int64
	for _, a := range r.assets {
		if !a.LastModified.Before(cutoff) {
			continue
		}
		if a.LocalStatus != StatusUploading && a.CloudStatus != StatusUploading {
			continue
		}
		if a.LocalStatus == StatusUploading {
			a.LocalStatus = StatusFailed
		}
		if a.CloudStatus == StatusUploading {
			a.CloudStatus = StatusFailed
		}
		a.LastModified = now
		n++
	}
	return n, nil
}
