// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrJWTSecretRequired is returned when JWT_SECRET is not set.
	ErrJWTSecretRequired = errors.New("config: JWT_SECRET is required")
	// ErrDatabaseURLRequired is returned when a SQL driver is selected without DATABASE_URL.
	ErrDatabaseURLRequired = errors.New("config: DATABASE_URL is required for the selected driver")
	// ErrUnknownDatabaseDriver is returned for an unsupported DATABASE_DRIVER.
	ErrUnknownDatabaseDriver = errors.New("config: unknown DATABASE_DRIVER")
	// ErrUnknownUploadLock is returned for an unsupported UPLOAD_LOCK.
	ErrUnknownUploadLock = errors.New("config: unknown UPLOAD_LOCK")
	// ErrRedisAddrRequired is returned when UPLOAD_LOCK=redis without REDIS_ADDR.
	ErrRedisAddrRequired = errors.New("config: REDIS_ADDR is required when UPLOAD_LOCK=redis")
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Upload lock modes.
const (
	LockNone   = "none"
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:5173" json:"allowed_origins"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES, default=524288000" json:"max_upload_bytes"`

	// Auth settings
	JWTSecret string `env:"JWT_SECRET, required" json:"-"` // Masked in JSON

	// Record store settings
	DatabaseDriver string `env:"DATABASE_DRIVER, default=memory" json:"database_driver"`
	DatabaseURL    string `env:"DATABASE_URL" json:"-"` // Masked in JSON, may carry a password

	// Object store settings
	SupabaseURL        string `env:"SUPABASE_URL" json:"supabase_url,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Region           string `env:"S3_REGION, default=us-east-1" json:"s3_region"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Local object store settings, used when SUPABASE_URL is empty
	StorageDir    string `env:"STORAGE_DIR, default=/tmp/vidrpy" json:"storage_dir"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8080" json:"public_base_url"`

	// Upload lock settings
	UploadLock    string        `env:"UPLOAD_LOCK, default=none" json:"upload_lock"`
	UploadLockTTL time.Duration `env:"UPLOAD_LOCK_TTL, default=10m" json:"upload_lock_ttl"`
	RedisAddr     string        `env:"REDIS_ADDR" json:"redis_addr,omitempty"`
	RedisPassword string        `env:"REDIS_PASSWORD" json:"-"` // Masked in JSON
	RedisDB       int           `env:"REDIS_DB, default=0" json:"redis_db"`

	// Stale upload sweeper settings
	StaleUploadAfter time.Duration `env:"STALE_UPLOAD_AFTER, default=30m" json:"stale_upload_after"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL, default=5m" json:"sweep_interval"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// ObjectStoreEnabled returns true if the remote object store is configured.
func (c *Config) ObjectStoreEnabled() bool {
	return c.SupabaseURL != ""
}

// ObjectStoreEndpoint returns the S3-compatible endpoint of the object store.
// It defaults to the storage gateway under SUPABASE_URL.
func (c *Config) ObjectStoreEndpoint() string {
	if c.S3Endpoint != "" {
		return c.S3Endpoint
	}
	return strings.TrimRight(c.SupabaseURL, "/") + "/storage/v1/s3"
}

// SweeperEnabled returns true if stale uploads should be demoted periodically.
func (c *Config) SweeperEnabled() bool {
	return c.StaleUploadAfter > 0 && c.SweepInterval > 0
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present.
// It returns an error if required variables are not set or values are invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "JWT_SECRET") {
			return nil, ErrJWTSecretRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}

	switch strings.ToLower(c.DatabaseDriver) {
	case "", DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDatabaseDriver, c.DatabaseDriver)
	}

	switch strings.ToLower(c.UploadLock) {
	case "", LockNone, LockMemory:
	case LockRedis:
		if c.RedisAddr == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownUploadLock, c.UploadLock)
	}

	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DatabaseDriver: %s, SupabaseURL: %s, S3Region: %s, StorageDir: %s, UploadLock: %s, StaleUploadAfter: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DatabaseDriver,
		c.SupabaseURL,
		c.S3Region,
		c.StorageDir,
		c.UploadLock,
		c.StaleUploadAfter,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
