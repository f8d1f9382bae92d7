// Package storage provides label document storage and rendering.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	infraconfig "github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3LabelStorage implements supply.ObjectStorage
var _ supply.ObjectStorage = (*S3LabelStorage)(nil)

// objectPutter is the part of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3LabelStorage uploads label documents to an S3-compatible bucket
// and returns public links to them.
type S3LabelStorage struct {
	client     objectPutter
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// S3Option is a functional option for configuring S3LabelStorage
type S3Option func(*S3LabelStorage)

// WithLogger sets a custom logger for S3LabelStorage
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3LabelStorage) {
		s.logger = logger
	}
}

// withPutter replaces the S3 client, used by tests.
func withPutter(p objectPutter) S3Option {
	return func(s *S3LabelStorage) {
		s.client = p
	}
}

// NewS3LabelStorage creates a new S3LabelStorage from configuration.
// Any S3-compatible backend works; path-style addressing is used unless disabled.
func NewS3LabelStorage(cfg *infraconfig.StorageConfig, opts ...S3Option) (*S3LabelStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "ru-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	storage := &S3LabelStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

func publicBase(cfg *infraconfig.StorageConfig) string {
	endpoint := strings.TrimRight(cfg.PublicEndpoint, "/")
	if endpoint == "" {
		endpoint = strings.TrimRight(cfg.Endpoint, "/")
	}
	bucket := cfg.PublicBucket
	if bucket == "" {
		bucket = cfg.Bucket
	}
	return endpoint + "/" + bucket
}

// Upload stores data under key with public read access and returns its public URL.
func (s *S3LabelStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("Label uploaded", zap.String("key", key), zap.Int("size", len(data)))
	return s.PublicURL(key), nil
}

// PublicURL returns the public link of key; each path segment is escaped.
func (s *S3LabelStorage) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/" + strings.Join(segments, "/")
}

// GetBucket returns the bucket name
func (s *S3LabelStorage) GetBucket() string {
	return s.bucket
}
