package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/internal/storage"
	"github.com/taskboard/apiserver/types"
)

const exportBatchSize = 100

// ErrExportUnavailable is returned when no object storage is configured.
var ErrExportUnavailable = errors.New("object storage is not configured")

// ObjectWriter is the subset of object storage used for exports.
type ObjectWriter interface {
	Put(ctx context.Context, obj storage.Object) error
	Bucket() string
}

// ExportResult locates a written export.
type ExportResult struct {
	Bucket string
	Key    string
	Count  int
}

type todoExport struct {
	ExportedAt time.Time             `json:"exportedAt"`
	Count      int                   `json:"count"`
	Todos      []types.TodoWithOwner `json:"todos"`
}

// ExportService snapshots every todo into object storage.
type ExportService struct {
	todos   TodoRepository
	objects ObjectWriter
	now     func() time.Time
	newID   func() string
}

func NewExportService(todos TodoRepository, objects ObjectWriter) *ExportService {
	return &ExportService{
		todos:   todos,
		objects: objects,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// ExportTodos writes all todos with owners as a single JSON document.
func (s *ExportService) ExportTodos(ctx context.Context) (ExportResult, error) {
	if s.objects == nil {
		return ExportResult{}, ErrExportUnavailable
	}

	all := make([]types.TodoWithOwner, 0)
	for offset := 0; ; offset += exportBatchSize {
		batch, total, err := s.todos.ListWithOwners(ctx, offset, exportBatchSize)
		if err != nil {
			return ExportResult{}, fmt.Errorf("list todos: %w", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || offset+len(batch) >= total {
			break
		}
	}

	exportedAt := s.now().UTC()
	body, err := json.Marshal(todoExport{ExportedAt: exportedAt, Count: len(all), Todos: all})
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("exports/todos-%s-%s.json", exportedAt.Format("20060102T150405Z"), s.newID())
	err = s.objects.Put(ctx, storage.Object{
		Key:         key,
		Body:        bytes.NewReader(body),
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"todo-count":  strconv.Itoa(len(all)),
			"exported-at": exportedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("upload export: %w", err)
	}

	return ExportResult{Bucket: s.objects.Bucket(), Key: key, Count: len(all)}, nil
}
