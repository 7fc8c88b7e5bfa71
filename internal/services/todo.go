package services

import (
	"context"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/taskboard/apiserver/types"
)

const (
	// TodosPageSize is the fixed page size of the admin todo listing.
	TodosPageSize = 10

	statsWindow    = 7 * 24 * time.Hour
	publishTimeout = 5 * time.Second
)

// TodoRepository defines persistence operations for todos.
type TodoRepository interface {
	Get(ctx context.Context, id string) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]types.Todo, error)
	ListWithOwners(ctx context.Context, offset, limit int) ([]types.TodoWithOwner, int, error)
	Counts(ctx context.Context, ownerID string, since time.Time) (types.TodoCounts, error)
}

// UserCounter reports the number of registered users.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// EventPublisher receives todo lifecycle events after they are committed.
type EventPublisher interface {
	PublishTodoEvent(ctx context.Context, event types.TodoEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishTodoEvent(context.Context, types.TodoEvent) error { return nil }

// CreateTodoInput is the payload for a new todo.
type CreateTodoInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type todoPatchInput struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
}

// TodoService encapsulates todo use-cases and ownership rules.
type TodoService struct {
	repo   TodoRepository
	users  UserCounter
	events EventPublisher
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

// NewTodoService wires a todo service. A nil publisher drops events and a nil
// logger discards output.
func NewTodoService(repo TodoRepository, users UserCounter, events EventPublisher, logger *log.Logger) *TodoService {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TodoService{
		repo:   repo,
		users:  users,
		events: events,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create stores a new todo owned by ownerID.
func (s *TodoService) Create(ctx context.Context, ownerID string, in CreateTodoInput) (types.Todo, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return types.Todo{}, err
	}

	now := s.now()
	todo, err := s.repo.Create(ctx, types.Todo{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return types.Todo{}, err
	}

	s.publish(ctx, types.TodoCreated, todo, ownerID)
	return todo, nil
}

// ListOwn returns every todo of ownerID, oldest first.
func (s *TodoService) ListOwn(ctx context.Context, ownerID string) ([]types.Todo, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListAll returns one page of every todo with owners populated.
func (s *TodoService) ListAll(ctx context.Context, page int) ([]types.TodoWithOwner, types.Pagination, error) {
	if page < 1 {
		page = 1
	}
	todos, total, err := s.repo.ListWithOwners(ctx, pageOffset(page, TodosPageSize), TodosPageSize)
	if err != nil {
		return nil, types.Pagination{}, err
	}
	return todos, types.NewPagination(page, TodosPageSize, total), nil
}

// Update applies patch to a todo owned by caller. Concurrent updates are last-write-wins.
func (s *TodoService) Update(ctx context.Context, todoID string, caller types.User, patch types.TodoPatch) (types.Todo, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validateStruct(todoPatchInput{Title: patch.Title, Description: patch.Description}); err != nil {
		return types.Todo{}, err
	}

	todo, err := s.get(ctx, todoID)
	if err != nil {
		return types.Todo{}, err
	}
	if todo.UserID != caller.ID {
		return types.Todo{}, ErrForbidden
	}

	patch.Apply(&todo)
	todo.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}

	s.publish(ctx, types.TodoUpdated, updated, caller.ID)
	return updated, nil
}

// Delete removes a todo. Admins may delete any todo, clients only their own.
func (s *TodoService) Delete(ctx context.Context, todoID string, caller types.User) error {
	todo, err := s.get(ctx, todoID)
	if err != nil {
		return err
	}
	if caller.Role != types.RoleAdmin && todo.UserID != caller.ID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, todo.ID); err != nil {
		return err
	}

	s.publish(ctx, types.TodoDeleted, todo, caller.ID)
	return nil
}

// Stats summarizes the todos of ownerID.
func (s *TodoService) Stats(ctx context.Context, ownerID string) (types.TodoStats, error) {
	counts, err := s.repo.Counts(ctx, ownerID, s.now().Add(-statsWindow))
	if err != nil {
		return types.TodoStats{}, err
	}
	return computeStats(counts), nil
}

// GlobalStats summarizes every todo and counts users.
func (s *TodoService) GlobalStats(ctx context.Context) (types.GlobalStats, error) {
	counts, err := s.repo.Counts(ctx, "", s.now().Add(-statsWindow))
	if err != nil {
		return types.GlobalStats{}, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return types.GlobalStats{}, err
	}
	return types.GlobalStats{TodoStats: computeStats(counts), Users: users}, nil
}

func (s *TodoService) get(ctx context.Context, id string) (types.Todo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Todo{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// publish never fails the caller; the change is already committed.
func (s *TodoService) publish(ctx context.Context, eventType types.TodoEventType, todo types.Todo, actorID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := types.TodoEvent{
		Type:       eventType,
		TodoID:     todo.ID,
		UserID:     todo.UserID,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishTodoEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish todo event", "type", eventType, "todo_id", todo.ID, "err", err)
	}
}

func computeStats(counts types.TodoCounts) types.TodoStats {
	stats := types.TodoStats{
		Total:           counts.Total,
		Completed:       counts.Completed,
		Pending:         counts.Total - counts.Completed,
		LastWeekCreated: counts.CreatedSince,
	}
	if counts.Total > 0 {
		rate := float64(counts.Completed) / float64(counts.Total) * 100
		stats.CompletionRate = math.Round(rate*10) / 10
	}
	return stats
}
