// Package bootstrap provides dependency initialization for the Vidrpy API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Eugene7997/Vidrpy/internal/asset"
	"github.com/Eugene7997/Vidrpy/internal/config"
	"github.com/Eugene7997/Vidrpy/internal/database"
	"github.com/Eugene7997/Vidrpy/internal/lock"
	"github.com/Eugene7997/Vidrpy/internal/storage"
)

const startupTimeout = 15 * time.Second

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *asset.Service
	// Sweeper is nil when stale upload sweeping is disabled.
	Sweeper *asset.Sweeper
	// Files serves locally stored objects; nil when the remote store is used.
	Files http.Handler

	closers []func() error
}

// Close releases database and redis connections.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	deps := &Dependencies{}

	// Initialize the record store
	repo, err := initRepository(cfg, logger, deps)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	// Initialize the object store
	store, err := initStorage(ctx, cfg, logger, deps)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	// Initialize the upload lock
	locker, err := initLocker(ctx, cfg, logger, deps)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	deps.Service = asset.NewService(
		repo,
		store,
		asset.WithLocker(locker),
		asset.WithLogger(logger),
	)

	if cfg.SweeperEnabled() {
		deps.Sweeper = asset.NewSweeper(repo, cfg.StaleUploadAfter, cfg.SweepInterval, logger)
	}

	return deps, nil
}

// initRepository creates the record store selected by DATABASE_DRIVER.
func initRepository(cfg *config.Config, logger *slog.Logger, deps *Dependencies) (asset.Repository, error) {
	if cfg.DatabaseDriver == "" || cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("using in-memory record store; records are lost on restart")
		return asset.NewMemoryRepository(), nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	deps.closers = append(deps.closers, func() error { return database.Close(db) })

	if err := asset.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return asset.NewGormRepository(db), nil
}

// initStorage creates the appropriate object store based on configuration
// and makes sure the bucket exists.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (storage.ObjectStore, error) {
	if cfg.ObjectStoreEnabled() {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.ObjectStoreEndpoint(),
			PublicBaseURL:   cfg.SupabaseURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create S3 object store: %w", err)
		}
		logger.Info("S3 object store configured",
			slog.String("endpoint", cfg.ObjectStoreEndpoint()),
			slog.String("region", cfg.S3Region),
			slog.String("bucket", storage.Bucket),
		)
		s3Store.EnsureBucket(ctx)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.StorageDir, cfg.PublicBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create local object store: %w", err)
	}
	logger.Info("local object store configured",
		slog.String("dir", localStore.Root()),
		slog.String("public_base_url", cfg.PublicBaseURL),
	)
	localStore.EnsureBucket(ctx)
	deps.Files = localStore.Handler()
	return localStore, nil
}

// initLocker creates the upload lock selected by UPLOAD_LOCK.
func initLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (lock.Locker, error) {
	switch cfg.UploadLock {
	case config.LockMemory:
		logger.Info("in-process upload lock configured")
		return lock.NewMemory(), nil
	case config.LockRedis:
		client := lock.NewRedisClient(lock.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		deps.closers = append(deps.closers, client.Close)
		if err := pingRedis(ctx, client); err != nil {
			return nil, err
		}
		logger.Info("redis upload lock configured",
			slog.String("addr", cfg.RedisAddr),
			slog.Duration("ttl", cfg.UploadLockTTL),
		)
		return lock.NewRedis(client, cfg.UploadLockTTL, logger), nil
	default:
		return lock.Noop{}, nil
	}
}

func pingRedis(ctx context.Context, client *goredis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	return nil
}
