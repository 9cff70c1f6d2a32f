package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Compile-time check that S3Store implements ObjectStore.
var _ ObjectStore = (*S3Store)(nil)

// S3Config holds the configuration for the S3-compatible object store.
type S3Config struct {
	Region          string
	Endpoint        string // S3-compatible endpoint, e.g. https://<project>.supabase.co/storage/v1/s3
	PublicBaseURL   string // Host that serves public objects, e.g. https://<project>.supabase.co
	AccessKeyID     string // Optional: administrative access key ID
	SecretAccessKey string // Optional: administrative secret access key
}

// S3Store stores videos in an S3-compatible bucket such as Supabase Storage.
// Without administrative credentials it is read-only: Put fails and Remove
// reports false.
type S3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
	admin   bool
	logger  *slog.Logger
}

// NewS3Store creates a new S3Store instance.
func NewS3Store(cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	admin := cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided, anonymous access otherwise
	if admin {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		configOpts = append(configOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:  Bucket,
		region:  cfg.Region,
		baseURL: cfg.PublicBaseURL,
		admin:   admin,
		logger:  logger,
	}, nil
}

// EnsureBucket creates the videos bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) {
	if !s.admin {
		s.logger.Warn("object store credentials not set, skipping bucket check",
			slog.String("bucket", s.bucket),
		)
		return
	}

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		s.logger.Info("bucket exists", slog.String("bucket", s.bucket))
		return
	}

	s.logger.Info("creating bucket", slog.String("bucket", s.bucket))
	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		s.logger.Error("failed to create bucket",
			slog.String("bucket", s.bucket),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("bucket created", slog.String("bucket", s.bucket))
}

// Put uploads data and returns its public URL.
func (s *S3Store) Put(ctx context.Context, assetID string, data []byte, filename string) (string, error) {
	key, err := ObjectKey(assetID, filename)
	if err != nil {
		return "", &StoreError{Op: "put", Key: assetID + "/" + filename, Err: err}
	}
	if !s.admin {
		return "", &StoreError{Op: "put", Key: key, Err: ErrNotConfigured}
	}

	s.logger.Info("uploading object",
		slog.String("asset_id", assetID),
		slog.String("storage_key", key),
		slog.Int("size_bytes", len(data)),
	)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ContentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", &StoreError{Op: "put", Key: key, Err: err}
	}

	return s.PublicURL(assetID, filename), nil
}

// Remove deletes the object at key, reporting false on any failure.
func (s *S3Store) Remove(ctx context.Context, key string) bool {
	if !s.admin {
		s.logger.Error("failed to delete object",
			slog.String("storage_key", key),
			slog.String("error", ErrNotConfigured.Error()),
		)
		return false
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("failed to delete object",
			slog.String("storage_key", key),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.Info("deleted object", slog.String("storage_key", key))
	return true
}

// PublicURL derives the public URL of an object.
func (s *S3Store) PublicURL(assetID, filename string) string {
	return PublicURL(s.baseURL, assetID, filename)
}
