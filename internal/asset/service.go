package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Eugene7997/Vidrpy/internal/lock"
	"github.com/Eugene7997/Vidrpy/internal/storage"
)

const defaultCompensationTimeout = 10 * time.Second

// CreateParams contains the client-supplied fields of a new asset.
type CreateParams struct {
	DisplayName    string
	LocalReference *string
	SizeBytes      *int64
	DurationMs     *int64
}

// MetadataPatch is a caller-driven edit of an asset. Status edits are checked
// against the per-track transition table; the durable reference is not
// editable here and only changes through Upload.
type MetadataPatch struct {
	DisplayName     *string
	LocalStatus     *Status
	CloudStatus     *Status
	LocalRetryCount *int
	CloudRetryCount *int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLocker serializes uploads per asset through l.
func WithLocker(l lock.Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCompensationTimeout bounds the write that marks a failed upload.
func WithCompensationTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.compensationTimeout = d
		}
	}
}

// Service owns the asset lifecycle: metadata CRUD, the upload workflow that
// drives both tracks, and deletion with remote cleanup.
// Every operation receives an already-authenticated owner ID; assets of
// other owners are reported as ErrNotFound.
type Service struct {
	repo                Repository
	store               storage.ObjectStore
	locker              lock.Locker
	logger              *slog.Logger
	compensationTimeout time.Duration
}

// NewService creates a new Service.
// Without WithLocker, uploads for the same asset are not serialized.
func NewService(repo Repository, store storage.ObjectStore, opts ...ServiceOption) *Service {
	s := &Service{
		repo:                repo,
		store:               store,
		locker:              lock.Noop{},
		logger:              slog.Default(),
		compensationTimeout: defaultCompensationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new asset with both tracks pending.
func (s *Service) Create(ctx context.Context, ownerID string, p CreateParams) (*Asset, error) {
	if strings.TrimSpace(p.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrInvalidPatch)
	}
	if p.SizeBytes != nil && *p.SizeBytes < 0 {
		return nil, fmt.Errorf("%w: size must not be negative", ErrInvalidPatch)
	}
	if p.DurationMs != nil && *p.DurationMs < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidPatch)
	}

	a := New(ownerID, p.DisplayName)
	a.LocalReference = cloneString(p.LocalReference)
	a.SizeBytes = cloneInt64(p.SizeBytes)
	a.DurationMs = cloneInt64(p.DurationMs)

	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("failed to create asset",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("create asset: %w: %w", ErrPersistence, err)
	}

	s.logger.Info("asset created",
		slog.String("asset_id", a.ID),
		slog.String("owner_id", ownerID),
	)
	return a, nil
}

// Get returns the owner's asset.
func (s *Service) Get(ctx context.Context, ownerID, assetID string) (*Asset, error) {
	a, err := s.repo.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if a.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns the owner's assets, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*Asset, error) {
	assets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// Update applies a metadata edit. A status that differs from the current one
// must be a valid transition for its track. The cloud track only reaches
// success through Upload, which also records the durable reference.
func (s *Service) Update(ctx context.Context, ownerID, assetID string, mp MetadataPatch) (*Asset, error) {
	a, err := s.Get(ctx, ownerID, assetID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(a.LocalStatus, mp.LocalStatus); err != nil {
		return nil, fmt.Errorf("local track: %w", err)
	}
	if err := checkTransition(a.CloudStatus, mp.CloudStatus); err != nil {
		return nil, fmt.Errorf("cloud track: %w", err)
	}
	if mp.CloudStatus != nil && *mp.CloudStatus == StatusSuccess && !a.HasDurableReference() {
		return nil, fmt.Errorf("cloud track: %w: success requires an uploaded object", ErrInvalidTransition)
	}

	p := Patch{
		DisplayName:     mp.DisplayName,
		LocalStatus:     mp.LocalStatus,
		CloudStatus:     mp.CloudStatus,
		LocalRetryCount: mp.LocalRetryCount,
		CloudRetryCount: mp.CloudRetryCount,
	}
	if p.IsEmpty() {
		return a, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, a.ID, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update asset: %w: %w", ErrPersistence, err)
	}
	return updated, nil
}

// SetTrackStatus moves a single track, optionally recording the caller's
// retry counter for it.
func (s *Service) SetTrackStatus(ctx context.Context, ownerID, assetID string, t Track, status Status, retryCount *int) (*Asset, error) {
	var mp MetadataPatch
	switch t {
	case TrackLocal:
		mp.LocalStatus = &status
		mp.LocalRetryCount = retryCount
	case TrackCloud:
		mp.CloudStatus = &status
		mp.CloudRetryCount = retryCount
	default:
		return nil, fmt.Errorf("%w: unknown track %q", ErrInvalidPatch, t)
	}
	return s.Update(ctx, ownerID, assetID, mp)
}

func checkTransition(from Status, to *Status) error {
	if to == nil || *to == from {
		return nil
	}
	if !to.IsValid() {
		return ErrInvalidStatus
	}
	if !CanTransition(from, *to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, *to)
	}
	return nil
}
