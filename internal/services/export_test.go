package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/internal/storage"
	"github.com/taskboard/apiserver/internal/store/memstore"
	"github.com/taskboard/apiserver/types"
)

type memoryObjects struct {
	objects     map[string][]byte
	contentType string
	metadata    map[string]string
}

func (m *memoryObjects) Put(_ context.Context, obj storage.Object) error {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	if int64(len(data)) != obj.Size {
		return io.ErrShortWrite
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[obj.Key] = data
	m.contentType = obj.ContentType
	m.metadata = obj.Metadata
	return nil
}

func (m *memoryObjects) Bucket() string { return "exports-bucket" }

func TestExportTodos(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	owner, err := store.Users().Create(ctx, types.User{ID: "u1", Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	for i := 0; i < exportBatchSize+5; i++ {
		_, err := store.Todos().Create(ctx, types.Todo{
			ID:     fmt.Sprintf("t%03d", i),
			Title:  "todo",
			UserID: owner.ID,
		})
		require.NoError(t, err)
	}

	objects := &memoryObjects{}
	svc := NewExportService(store.Todos(), objects)
	svc.now = func() time.Time { return time.Date(2026, 7, 4, 10, 30, 0, 0, time.UTC) }
	svc.newID = func() string { return "fixed" }

	result, err := svc.ExportTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exports-bucket", result.Bucket)
	assert.Equal(t, "exports/todos-20260704T103000Z-fixed.json", result.Key)
	assert.Equal(t, exportBatchSize+5, result.Count)
	assert.Equal(t, "application/json", objects.contentType)
	assert.Equal(t, map[string]string{
		"todo-count":  "105",
		"exported-at": "2026-07-04T10:30:00Z",
	}, objects.metadata)

	var doc todoExport
	require.NoError(t, json.Unmarshal(objects.objects[result.Key], &doc))
	assert.Equal(t, exportBatchSize+5, doc.Count)
	assert.Len(t, doc.Todos, exportBatchSize+5)
	assert.Equal(t, "Ann", doc.Todos[0].User.Name)
}

func TestExportTodosWithoutStorage(t *testing.T) {
	svc := NewExportService(memstore.New().Todos(), nil)

	_, err := svc.ExportTodos(context.Background())
	assert.ErrorIs(t, err, ErrExportUnavailable)
}
