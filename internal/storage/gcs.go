package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/taskboard/apiserver/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// singleRequestLimit is the SDK's default resumable chunk size. Smaller
// uploads are sent in one request.
const singleRequestLimit = 16 << 20

// GCSClient uploads exports to a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSClient constructs a GCS client from config. Without a credentials
// file the SDK falls back to application default credentials.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	return &GCSClient{
		client:    client,
		bucket:    bucket,
		projectID: strings.TrimSpace(cfg.ProjectID),
	}, nil
}

// EnsureBucket creates the export bucket with uniform access when missing.
// Creation needs a project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	handle := g.client.Bucket(g.bucket)
	_, err := handle.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("gcs bucket %s: %w", g.bucket, err)
	case g.projectID == "":
		return fmt.Errorf("gcs bucket %s does not exist and no project id is set to create it", g.bucket)
	}

	err = handle.Create(ctx, g.projectID, &storage.BucketAttrs{
		UniformBucketLevelAccess: storage.UniformBucketLevelAccess{Enabled: true},
	})
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gcs create bucket %s: %w", g.bucket, err)
	}
	return nil
}

// Put streams obj into a new object.
func (g *GCSClient) Put(ctx context.Context, obj Object) error {
	writer := g.client.Bucket(g.bucket).Object(obj.Key).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	writer.ContentDisposition = obj.Disposition()
	writer.Metadata = obj.Metadata
	if obj.Size >= 0 && obj.Size < singleRequestLimit {
		writer.ChunkSize = 0
	}

	if _, err := io.Copy(writer, obj.Body); err != nil {
		_ = writer.Close()
		return fmt.Errorf("gcs put gs://%s/%s: %w", g.bucket, obj.Key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("gcs put gs://%s/%s: %w", g.bucket, obj.Key, err)
	}
	return nil
}

func (g *GCSClient) Bucket() string {
	return g.bucket
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
