package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Eugene7997/Vidrpy/internal/lock"
	"github.com/Eugene7997/Vidrpy/internal/storage"
)

// Upload stores data in the object store and records the result on both
// tracks: pending|failed -> uploading -> success|failed.
//
// An unusable filename falls back to the asset's display name.
// Store failures are returned as they came from the store. Once the tracks
// are uploading, any failure marks both tracks failed; if that write fails
// too, it is logged and the original error is still returned.
func (s *Service) Upload(ctx context.Context, ownerID, assetID string, data []byte, filename string) (string, error) {
	a, err := s.Get(ctx, ownerID, assetID)
	if err != nil {
		return "", err
	}

	release, err := s.locker.Acquire(ctx, a.ID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return "", ErrUploadInProgress
		}
		return "", fmt.Errorf("acquire upload lock: %w", err)
	}
	defer release()

	if storage.SanitizeFilename(filename) == "" {
		filename = a.DisplayName
	}

	if _, err := s.repo.Update(ctx, a.ID, BothTracks(StatusUploading)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("mark uploading: %w: %w", ErrPersistence, err)
	}

	s.logger.Info("upload started",
		slog.String("asset_id", a.ID),
		slog.String("owner_id", ownerID),
		slog.Int("size_bytes", len(data)),
	)

	ref, err := s.store.Put(ctx, a.ID, data, filename)
	if err != nil {
		s.logger.Error("upload failed",
			slog.String("asset_id", a.ID),
			slog.String("error", err.Error()),
		)
		s.markFailed(ctx, a.ID, err)
		return "", err
	}

	// The object exists now; record it even if the client went away.
	success := StatusSuccess
	_, err = s.repo.Update(context.WithoutCancel(ctx), a.ID, Patch{
		DurableReference: &ref,
		LocalStatus:      &success,
		CloudStatus:      &success,
	})
	if err != nil {
		s.logger.Error("failed to record upload",
			slog.String("asset_id", a.ID),
			slog.String("error", err.Error()),
		)
		s.markFailed(ctx, a.ID, err)
		return "", fmt.Errorf("record upload: %w: %w", ErrPersistence, err)
	}

	s.logger.Info("upload completed",
		slog.String("asset_id", a.ID),
		slog.String("durable_reference", ref),
	)
	return ref, nil
}

// markFailed moves both tracks to failed. Its own failure is only logged.
func (s *Service) markFailed(ctx context.Context, assetID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	if _, err := s.repo.Update(ctx, assetID, BothTracks(StatusFailed)); err != nil {
		s.logger.Error("failed to mark upload failed",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
			slog.String("upload_error", cause.Error()),
		)
	}
}
