// Package memstore keeps users and todos in process memory.
// It backs STORE_BACKEND=memory and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// Store holds both collections behind one lock so joins see a consistent view.
type Store struct {
	mu     sync.RWMutex
	users  map[string]types.User
	emails map[string]string
	todos  map[string]types.Todo
}

func New() *Store {
	return &Store{
		users:  make(map[string]types.User),
		emails: make(map[string]string),
		todos:  make(map[string]types.Todo),
	}
}

// Users returns a repository view over the user collection.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Todos returns a repository view over the todo collection.
func (s *Store) Todos() *TodoRepository {
	return &TodoRepository{s: s}
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return types.User{}, store.ErrDuplicate
	}
	if _, exists := r.s.emails[user.Email]; exists {
		return types.User{}, store.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt

	r.s.users[user.ID] = user
	r.s.emails[user.Email] = user.ID
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if owner, taken := r.s.emails[user.Email]; taken && owner != user.ID {
		return types.User{}, store.ErrDuplicate
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}
	user.CreatedAt = current.CreatedAt

	delete(r.s.emails, current.Email)
	r.s.emails[user.Email] = user.ID
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]types.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return createdBefore(users[i].CreatedAt, users[i].ID, users[j].CreatedAt, users[j].ID)
	})
	start, end := window(len(users), offset, limit)
	return users[start:end], len(users), nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

type TodoRepository struct {
	s *Store
}

func (r *TodoRepository) Get(ctx context.Context, id string) (types.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	todo, ok := r.s.todos[id]
	if !ok {
		return types.Todo{}, store.ErrNotFound
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.todos[todo.ID]; exists {
		return types.Todo{}, store.ErrDuplicate
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	todo.UpdatedAt = todo.CreatedAt
	r.s.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.todos[todo.ID]
	if !ok {
		return types.Todo{}, store.ErrNotFound
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = time.Now()
	}
	todo.UserID = current.UserID
	todo.CreatedAt = current.CreatedAt
	r.s.todos[todo.ID] = todo
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.todos[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.todos, id)
	return nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	todos := make([]types.Todo, 0)
	for _, todo := range r.s.todos {
		if todo.UserID == ownerID {
			todos = append(todos, todo)
		}
	}
	sortTodos(todos)
	return todos, nil
}

func (r *TodoRepository) ListWithOwners(ctx context.Context, offset, limit int) ([]types.TodoWithOwner, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	todos := make([]types.Todo, 0, len(r.s.todos))
	for _, todo := range r.s.todos {
		todos = append(todos, todo)
	}
	sortTodos(todos)
	start, end := window(len(todos), offset, limit)

	page := make([]types.TodoWithOwner, 0, end-start)
	for _, todo := range todos[start:end] {
		owner := r.s.users[todo.UserID]
		page = append(page, types.TodoWithOwner{
			ID:          todo.ID,
			Title:       todo.Title,
			Description: todo.Description,
			Completed:   todo.Completed,
			User: types.TodoOwner{
				ID:    todo.UserID,
				Name:  owner.Name,
				Email: owner.Email,
			},
			CreatedAt: todo.CreatedAt,
			UpdatedAt: todo.UpdatedAt,
		})
	}
	return page, len(todos), nil
}

func (r *TodoRepository) Counts(ctx context.Context, ownerID string, since time.Time) (types.TodoCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var counts types.TodoCounts
	for _, todo := range r.s.todos {
		if ownerID != "" && todo.UserID != ownerID {
			continue
		}
		counts.Total++
		if todo.Completed {
			counts.Completed++
		}
		if !todo.CreatedAt.Before(since) {
			counts.CreatedSince++
		}
	}
	return counts, nil
}

func sortTodos(todos []types.Todo) {
	sort.Slice(todos, func(i, j int) bool {
		return createdBefore(todos[i].CreatedAt, todos[i].ID, todos[j].CreatedAt, todos[j].ID)
	})
}

func createdBefore(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID < bID
}

func window(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
