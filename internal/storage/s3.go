package storage

import (
	"alcyxob/course-app/internal/config"
	"alcyxob/course-app/internal/logger"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage implements FileStorage and ObjectReader on an S3-compatible backend.
type S3Storage struct {
	client        *s3.Client        // Regular client for object operations
	presignClient *s3.PresignClient // Special client for generating presigned URLs
	bucketName    string
	log           *logger.Logger
}

// NewS3Storage creates a new S3 storage instance. A custom endpoint switches
// to path-style addressing, which MinIO and most compatible services need.
func NewS3Storage(ctx context.Context, cfg config.S3Config, log *logger.Logger) (*S3Storage, error) {
	opts := []func(*awsCfg.LoadOptions) error{
		awsCfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := endpointURL(cfg.Endpoint, cfg.UseSSL)
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info("S3 storage initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return &S3Storage{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		log:           log,
	}, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// GeneratePresignedUploadURL creates a temporary URL for uploading (PUT).
func (s *S3Storage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType), // Client MUST send this header on upload
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.log.Error("presign PUT failed", "key", objectKey, "error", err)
		return "", err
	}
	return req.URL, nil
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *S3Storage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.log.Error("presign GET failed", "key", objectKey, "error", err)
		return "", err
	}
	return req.URL, nil
}

func (s *S3Storage) StatObject(ctx context.Context, objectKey string) (*ObjectMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return &ObjectMetadata{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// DeleteObject removes an object from the bucket.
func (s *S3Storage) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.log.Error("delete object failed", "key", objectKey, "bucket", s.bucketName, "error", err)
		return err
	}
	s.log.Info("deleted object", "key", objectKey, "bucket", s.bucketName)
	return nil
}

// OpenObject streams an object from any bucket the credentials can read.
func (s *S3Storage) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return out.Body, nil
}
