package asset

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper demotes uploads that stayed in uploading for too long, e.g.
// because the process died or the client vanished mid-upload.
type Sweeper struct {
	repo       Repository
	staleAfter time.Duration
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewSweeper creates a sweeper that runs every interval and fails tracks
// uploading for longer than staleAfter.
func NewSweeper(repo Repository, staleAfter, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		repo:       repo,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Sweep errors are logged; Run only returns on cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("stale upload sweeper started",
		slog.Duration("stale_after", s.staleAfter),
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("stale upload sweep failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("stale upload sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce fails every track uploading since before now - staleAfter.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.staleAfter)
	n, err := s.repo.FailStaleUploads(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("demoted stale uploads",
			slog.Int64("assets", n),
			slog.Time("cutoff", cutoff),
		)
	}
	return n, nil
}
