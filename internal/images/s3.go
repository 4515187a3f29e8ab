package images

import (
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
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
)

const presignTTL = 15 * time.Minute

// S3Config points at an S3-compatible bucket (AWS, MinIO, OSS).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// S3Store keeps images in an object bucket and records s3://bucket/key
// paths on the rows.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	log     *zap.Logger
}

// NewS3Store builds the client with static credentials and an optional
// custom endpoint.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, appErrors.NewConfigurationInvalid("images.s3.bucket", "bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, appErrors.NewStorage("s3_config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		log:     logger.WithModule("images.s3"),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", appErrors.NewStorage("save_image", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Store) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	key, ok := s.keyFor(storagePath)
	if !ok {
		return nil, appErrors.NewStorage("open_image", fmt.Errorf("path %q is not in bucket %s", storagePath, s.bucket))
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, appErrors.NewStorage("open_image", err)
	}
	return resp.Body, nil
}

func (s *S3Store) Exists(ctx context.Context, storagePath string) bool {
	key, ok := s.keyFor(storagePath)
	if !ok {
		// foreign path, not ours to judge
		return true
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false
	}
	// transient failure: keep the row
	s.log.Warn("head object failed", zap.String("key", key), zap.Error(err))
	return true
}

func (s *S3Store) Remove(ctx context.Context, storagePath string) error {
	key, ok := s.keyFor(storagePath)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return appErrors.NewStorage("remove_image", err)
	}

	s.log.Info("image deleted", zap.String("key", key))
	return nil
}

// URL presigns a direct GET so the tab can load images without
// proxying the bytes.
func (s *S3Store) URL(ctx context.Context, storagePath string) (string, bool) {
	key, ok := s.keyFor(storagePath)
	if !ok {
		return "", false
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		s.log.Warn("presign failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return req.URL, true
}

// Ping verifies the bucket answers.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return appErrors.NewStorage("ping_images", err)
	}
	return nil
}

func (s *S3Store) keyFor(storagePath string) (string, bool) {
	prefix := "s3://" + s.bucket + "/"
	if strings.HasPrefix(storagePath, prefix) {
		return strings.TrimPrefix(storagePath, prefix), true
	}
	if !strings.Contains(storagePath, "://") && storagePath != "" {
		// bare keys written before the scheme was recorded
		return strings.TrimPrefix(storagePath, "/"), true
	}
	return "", false
}
