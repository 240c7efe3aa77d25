package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 media backend.
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string // Key prefix inside the bucket
	Endpoint string // Overrides the AWS endpoint (MinIO, LocalStack)
	BaseURL  string // Public URL prefix; defaults to the bucket URL

	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string

	UploadTimeout time.Duration
}

// S3Storage keeps media files in an S3 bucket.
type S3Storage struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Storage loads AWS configuration and creates the client.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBucketURL(cfg)
	}

	return &S3Storage{cfg: cfg, client: client}, nil
}

func (s *S3Storage) objectKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return joinURL(s.cfg.Prefix, key)
}

func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	fullKey := s.objectKey(key)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(fullKey),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("failed to put object %s/%s: %w", s.cfg.Bucket, fullKey, err)
	}

	return Object{
		Key:         fullKey,
		URL:         joinURL(s.cfg.BaseURL, fullKey),
		ContentType: contentType,
		Size:        size,
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", s.cfg.Bucket, key, err)
	}
	return nil
}

func defaultBucketURL(cfg S3Config) string {
	if cfg.Endpoint != "" {
		return joinURL(cfg.Endpoint, cfg.Bucket)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}
