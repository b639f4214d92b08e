package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	appcomp "github.com/erp/posting/internal/application/compliance"
	"github.com/erp/posting/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultPresignTTL = 15 * time.Minute

var _ appcomp.ObjectStorage = (*S3ObjectStorage)(nil)

// S3ObjectStorage keeps exports in an S3-compatible bucket. Writes are
// conditional on the key being absent so an export is never replaced.
type S3ObjectStorage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
	logger     *zap.Logger
}

type S3Option func(*S3ObjectStorage)

func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3ObjectStorage) { s.logger = logger }
}

// WithPresignTTL sets the lifetime used when a caller asks for none
func WithPresignTTL(d time.Duration) S3Option {
	return func(s *S3ObjectStorage) { s.presignTTL = d }
}

// NewS3ObjectStorage resolves credentials from the static keys when both are
// set and from the default AWS chain otherwise.
func NewS3ObjectStorage(ctx context.Context, cfg *config.StorageConfig, opts ...S3Option) (*S3ObjectStorage, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("storage: s3 configuration is required")
	case cfg.S3Bucket == "":
		return nil, errors.New("storage: s3 bucket is required")
	case (cfg.S3AccessKey == "") != (cfg.S3SecretKey == ""):
		return nil, errors.New("storage: s3 access key and secret key must be set together")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("storage: aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3PathStyle
		if ep := endpointURL(cfg.S3Endpoint); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	})
	s := &S3ObjectStorage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.S3Bucket,
		presignTTL: defaultPresignTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// endpointURL defaults a bare host:port to https
func endpointURL(endpoint string) string {
	if endpoint == "" || strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

func (s *S3ObjectStorage) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket when HeadBucket reports it missing
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
		return nil
	case !hasErrorCode(err, "NotFound", "NoSuchBucket"):
		return fmt.Errorf("storage: head bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating export bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !hasErrorCode(err, "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload stores data with If-None-Match: * and maps a failed precondition to
// ErrObjectExists.
func (s *S3ObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(storageKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if hasErrorCode(err, "PreconditionFailed", "ConditionalRequestConflict") {
			return fmt.Errorf("%w: %s", ErrObjectExists, storageKey)
		}
		return fmt.Errorf("storage: put %s: %w", storageKey, err)
	}
	s.logger.Debug("Export uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", storageKey),
		zap.Int("bytes", len(data)))
	return nil
}

func (s *S3ObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, ErrEmptyKey
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", storageKey, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// GenerateDownloadURL presigns a GET. A non-positive expiresIn falls back to
// the configured TTL.
func (s *S3ObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.presignTTL
	}
	req, err := s.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)},
		s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign %s: %w", storageKey, err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

func (s *S3ObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, ErrEmptyKey
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)})
	switch {
	case err == nil:
		return true, nil
	case hasErrorCode(err, "NotFound", "NoSuchKey"):
		return false, nil
	default:
		return false, fmt.Errorf("storage: head %s: %w", storageKey, err)
	}
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
