// Package asset provides the Asset aggregate for recorded videos and the
// services that move an asset through its two upload tracks.
// It includes the Asset entity with per-track state transitions, the
// repository port for persistence, and the upload and deletion workflows.
package asset

import (
	"strings"
	"time"

	"github.com/Eugene7997/Vidrpy/internal/asset/id"
)

// Status represents the upload state of a single track.
type Status string

const (
	// StatusPending indicates the track has not been attempted yet.
	StatusPending Status = "pending"
	// StatusUploading indicates an upload for the track is in flight.
	StatusUploading Status = "uploading"
	// StatusSuccess indicates the track holds a durable copy.
	StatusSuccess Status = "success"
	// StatusFailed indicates the last attempt for the track failed.
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is one of the four persisted values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Track identifies one of the two independent upload destinations.
type Track string

const (
	// TrackLocal is the private, client-local persistence path.
	TrackLocal Track = "local"
	// TrackCloud is the durable object store.
	TrackCloud Track = "cloud"
)

// ParseTrack converts a path or wire value to a Track.
// "private" is accepted as an alias for the local track.
func ParseTrack(s string) (Track, bool) {
	switch strings.ToLower(s) {
	case "local", "private":
		return TrackLocal, true
	case "cloud":
		return TrackCloud, true
	}
	return "", false
}

// validTransitions defines which per-track transitions a caller may request.
// A successful track may be uploaded again, and the last success wins.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusUploading},
	StatusUploading: {StatusSuccess, StatusFailed},
	StatusFailed:    {StatusUploading},
	StatusSuccess:   {StatusUploading},
}

// CanTransition checks if a track may move from one status to another.
func CanTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Asset is one recorded video's metadata row.
type Asset struct {
	// ID is the unique identifier, immutable after creation.
	ID string
	// OwnerID identifies the owning user, immutable after creation.
	OwnerID string
	// DisplayName is the human-editable filename.
	DisplayName string
	// LocalReference is an opaque key into client-local storage.
	LocalReference *string
	// DurableReference is the public URL of the uploaded object.
	// It is nil until the first successful cloud upload and is never cleared.
	DurableReference *string
	// LocalStatus is the state of the local track.
	LocalStatus Status
	// CloudStatus is the state of the cloud track.
	CloudStatus Status
	// LocalRetryCount is the caller-maintained retry counter of the local track.
	LocalRetryCount int
	// CloudRetryCount is the caller-maintained retry counter of the cloud track.
	CloudRetryCount int
	// SizeBytes is the recorded file size, if known.
	SizeBytes *int64
	// DurationMs is the recorded duration, if known.
	DurationMs *int64
	// CreatedAt is when the asset was created.
	CreatedAt time.Time
	// LastModified is when any field last changed.
	LastModified time.Time
}

// New creates an Asset with a generated ID and both tracks pending.
func New(ownerID, displayName string) *Asset {
	return NewWithID(id.Generate(), ownerID, displayName)
}

// NewWithID creates an Asset with the specified ID and both tracks pending.
// Useful for testing or when the ID is generated externally.
func NewWithID(assetID, ownerID, displayName string) *Asset {
	now := time.Now().UTC()
	return &Asset{
		ID:           assetID,
		OwnerID:      ownerID,
		DisplayName:  displayName,
		LocalStatus:  StatusPending,
		CloudStatus:  StatusPending,
		CreatedAt:    now,
		LastModified: now,
	}
}

// TrackStatus returns the status of the given track.
func (a *Asset) TrackStatus(t Track) Status {
	if t == TrackLocal {
		return a.LocalStatus
	}
	return a.CloudStatus
}

// HasDurableReference reports whether the asset has been uploaded at least once.
func (a *Asset) HasDurableReference() bool {
	return a.DurableReference != nil && *a.DurableReference != ""
}

// Clone creates a deep copy of the asset for safe reads.
func (a *Asset) Clone() *Asset {
	c := *a
	c.LocalReference = cloneString(a.LocalReference)
	c.DurableReference = cloneString(a.DurableReference)
	c.SizeBytes = cloneInt64(a.SizeBytes)
	c.DurationMs = cloneInt64(a.DurationMs)
	return &c
}

// Patch is a partial update of an asset. Nil fields are left untouched.
type Patch struct {
	DisplayName      *string
	DurableReference *string
	LocalStatus      *Status
	CloudStatus      *Status
	LocalRetryCount  *int
	CloudRetryCount  *int
}

// BothTracks returns a patch that moves both tracks to the same status.
func BothTracks(s Status) Patch {
	return Patch{LocalStatus: &s, CloudStatus: &s}
}

// IsEmpty returns true if the patch carries no field.
func (p Patch) IsEmpty() bool {
	return p.DisplayName == nil &&
		p.DurableReference == nil &&
		p.LocalStatus == nil &&
		p.CloudStatus == nil &&
		p.LocalRetryCount == nil &&
		p.CloudRetryCount == nil
}

// Validate rejects values that must never be persisted.
func (p Patch) Validate() error {
	if p.LocalStatus != nil && !p.LocalStatus.IsValid() {
		return ErrInvalidStatus
	}
	if p.CloudStatus != nil && !p.CloudStatus.IsValid() {
		return ErrInvalidStatus
	}
	if p.LocalRetryCount != nil && *p.LocalRetryCount < 0 {
		return ErrInvalidPatch
	}
	if p.CloudRetryCount != nil && *p.CloudRetryCount < 0 {
		return ErrInvalidPatch
	}
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return ErrInvalidPatch
	}
	return nil
}

// apply writes the patch into a and stamps LastModified.
func (p Patch) apply(a *Asset, now time.Time) {
	if p.DisplayName != nil {
		a.DisplayName = *p.DisplayName
	}
	if p.DurableReference != nil {
		a.DurableReference = cloneString(p.DurableReference)
	}
	if p.LocalStatus != nil {
		a.LocalStatus = *p.LocalStatus
	}
	if p.CloudStatus != nil {
		a.CloudStatus = *p.CloudStatus
	}
	if p.LocalRetryCount != nil {
		a.LocalRetryCount = *p.LocalRetryCount
	}
	if p.CloudRetryCount != nil {
		a.CloudRetryCount = *p.CloudRetryCount
	}
	a.LastModified = now
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
