package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/taskboard/apiserver/config"
)

// MinioClient uploads exports to a MinIO (or any S3 compatible) bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

func validateMinio(cfg config.MinioConfig) error {
	var missing []string
	if strings.TrimSpace(cfg.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		missing = append(missing, "access key")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		missing = append(missing, "secret key")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("minio config missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewMinioClient constructs a MinIO client from config.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	if err := validateMinio(cfg); err != nil {
		return nil, err
	}

	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", cfg.Endpoint, err)
	}

	return &MinioClient{client: client, bucket: strings.TrimSpace(cfg.Bucket)}, nil
}

// EnsureBucket creates the export bucket on first use. Losing a creation
// race to another process counts as success.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("minio create bucket %s: %w", m.bucket, err)
	}
	return nil
}

// Put uploads obj with its metadata as x-amz-meta headers.
func (m *MinioClient) Put(ctx context.Context, obj Object) error {
	if obj.Body == nil {
		return errors.New("minio put: nil body")
	}
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:        obj.ContentType,
		ContentDisposition: obj.Disposition(),
		UserMetadata:       obj.Metadata,
	})
	if err != nil {
		return fmt.Errorf("minio put %s/%s: %w", m.bucket, obj.Key, err)
	}
	return nil
}

func (m *MinioClient) Bucket() string {
	return m.bucket
}

// Close is a no-op; the MinIO client holds no long-lived connections.
func (m *MinioClient) Close() error {
	return nil
}
