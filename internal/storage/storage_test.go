package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/config"
)

type memoryBackend struct {
	objects   map[string]string
	last      Object
	ensureErr error
	ensured   bool
	closed    bool
}

func (m *memoryBackend) EnsureBucket(context.Context) error {
	m.ensured = true
	return m.ensureErr
}

func (m *memoryBackend) Put(_ context.Context, obj Object) error {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	m.objects[obj.Key] = string(data)
	m.last = obj
	return nil
}

func (m *memoryBackend) Bucket() string { return "taskboard" }

func (m *memoryBackend) Close() error {
	m.closed = true
	return nil
}

func TestStoragePutNormalizesKey(t *testing.T) {
	backend := &memoryBackend{}
	s := NewStorage(backend)

	require.NoError(t, s.Put(context.Background(), Object{
		Key:         " /exports/a.json",
		Body:        strings.NewReader("{}"),
		Size:        2,
		ContentType: "application/json",
		Metadata:    map[string]string{"todo-count": "0"},
	}))
	assert.Equal(t, "{}", backend.objects["exports/a.json"])
	assert.Equal(t, "application/json", backend.last.ContentType)
	assert.Equal(t, "0", backend.last.Metadata["todo-count"])

	err := s.Put(context.Background(), Object{Key: "  ", Body: bytes.NewReader(nil)})
	assert.EqualError(t, err, "object key is required")

	err = s.Put(context.Background(), Object{Key: "exports/b.json"})
	assert.EqualError(t, err, "object exports/b.json has no body")
}

func TestStoragePutDefaultsContentType(t *testing.T) {
	backend := &memoryBackend{}
	s := NewStorage(backend)

	require.NoError(t, s.Put(context.Background(), Object{Key: "raw.bin", Body: strings.NewReader("x"), Size: 1}))
	assert.Equal(t, "application/octet-stream", backend.last.ContentType)
}

func TestObjectDisposition(t *testing.T) {
	obj := Object{Key: "exports/todos-20260704T103000Z-fixed.json"}
	assert.Equal(t, `attachment; filename="todos-20260704T103000Z-fixed.json"`, obj.Disposition())
}

func TestValidateMinio(t *testing.T) {
	err := validateMinio(config.MinioConfig{})
	assert.EqualError(t, err, "minio config missing endpoint, access key, secret key, bucket")

	err = validateMinio(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "key", SecretKey: "secret"})
	assert.EqualError(t, err, "minio config missing bucket")

	assert.NoError(t, validateMinio(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "exports",
	}))
}

func TestStorageDelegates(t *testing.T) {
	backend := &memoryBackend{ensureErr: errors.New("denied")}
	s := NewStorage(backend)

	assert.EqualError(t, s.EnsureBucket(context.Background()), "denied")
	assert.True(t, backend.ensured)
	assert.Equal(t, "taskboard", s.Bucket())
	require.NoError(t, s.Close())
	assert.True(t, backend.closed)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "unknown STORAGE_BACKEND")

	_, err = Open(context.Background(), config.StorageConfig{Backend: BackendMinio})
	assert.ErrorContains(t, err, "minio config missing endpoint")

	_, err = Open(context.Background(), config.StorageConfig{Backend: BackendGCS})
	assert.ErrorContains(t, err, "gcs bucket is required")
}
