package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for object storage operations on the
// configured materials bucket.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// StatObject returns the metadata of an uploaded object, or ErrObjectNotFound.
	StatObject(ctx context.Context, objectKey string) (*ObjectMetadata, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// ObjectReader opens arbitrary objects by bucket and key. Used to read course
// documents for ingestion.
type ObjectReader interface {
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type ObjectMetadata struct {
	Size        int64
	ContentType string
}

// ParseS3URI splits "s3://bucket/path/to/key" into bucket and key.
func ParseS3URI(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("parse s3 uri %q: scheme must be s3", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("parse s3 uri %q: bucket and key are required", raw)
	}
	return u.Host, key, nil
}
