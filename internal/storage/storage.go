// Package storage uploads todo exports to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taskboard/apiserver/config"
)

// Backend names accepted by Open.
const (
	BackendNone  = "none"
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// Object is a single upload. Size may be -1 when unknown.
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	// Metadata is stored as user-defined object metadata.
	Metadata map[string]string
}

// Disposition asks browsers to download the object under its base name.
func (o Object) Disposition() string {
	return fmt.Sprintf("attachment; filename=%q", path.Base(o.Key))
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Bucket() string
	Close() error
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open connects to the backend selected by cfg and makes sure its bucket
// exists. It returns nil, nil when no backend is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case BackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s := NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return s, nil
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads obj to the configured bucket.
func (s *Storage) Put(ctx context.Context, obj Object) error {
	obj.Key = strings.TrimLeft(strings.TrimSpace(obj.Key), "/")
	if obj.Key == "" {
		return errors.New("object key is required")
	}
	if obj.Body == nil {
		return fmt.Errorf("object %s has no body", obj.Key)
	}
	if strings.TrimSpace(obj.ContentType) == "" {
		obj.ContentType = "application/octet-stream"
	}
	return s.backend.Put(ctx, obj)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Close releases the backend client.
func (s *Storage) Close() error {
	return s.backend.Close()
}
