package asset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Eugene7997/Vidrpy/internal/storage"
)

// Delete removes the uploaded object, if any, and then the asset row.
// The remote delete is best effort: a bad reference or a failed remove is
// logged and the row is deleted anyway. A row that vanished concurrently
// still counts as deleted.
func (s *Service) Delete(ctx context.Context, ownerID, assetID string) error {
	a, err := s.Get(ctx, ownerID, assetID)
	if err != nil {
		return err
	}

	if a.HasDurableReference() {
		s.removeObject(ctx, a)
	}

	deleted, err := s.repo.Delete(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("delete asset: %w: %w", ErrPersistence, err)
	}

	s.logger.Info("asset deleted",
		slog.String("asset_id", a.ID),
		slog.String("owner_id", ownerID),
		slog.Bool("row_existed", deleted),
	)
	return nil
}

func (s *Service) removeObject(ctx context.Context, a *Asset) {
	key, err := storage.KeyFromReference(*a.DurableReference)
	if err != nil {
		s.logger.Warn("skipping remote delete",
			slog.String("asset_id", a.ID),
			slog.String("durable_reference", *a.DurableReference),
			slog.String("error", err.Error()),
		)
		return
	}

	if !s.store.Remove(ctx, key) {
		s.logger.Warn("remote delete failed, deleting record anyway",
			slog.String("asset_id", a.ID),
			slog.String("storage_key", key),
		)
	}
}
