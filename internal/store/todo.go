package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/taskboard/apiserver/types"
)

const todoColumns = `id, title, description, completed, user_id, created_at, updated_at`

// TodoRepository handles persistence for todos.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func scanTodo(row rowScanner) (types.Todo, error) {
	var todo types.Todo
	err := row.Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.Completed,
		&todo.UserID,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	return todo, err
}

func (r *TodoRepository) Get(ctx context.Context, id string) (types.Todo, error) {
	const query = `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	todo.UpdatedAt = todo.CreatedAt

	const query = `
		INSERT INTO todos (id, title, description, completed, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		todo.ID,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.UserID,
		todo.CreatedAt,
		todo.UpdatedAt,
	); err != nil {
		return types.Todo{}, translateError(err)
	}
	return todo, nil
}

// Update overwrites the mutable fields. The owner is never rewritten.
func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = time.Now()
	}

	const query = `
		UPDATE todos
		SET title = $1,
			description = $2,
			completed = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		return types.Todo{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Todo{}, err
	}
	if affected == 0 {
		return types.Todo{}, ErrNotFound
	}
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM todos WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Todo, error) {
	const query = `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]types.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *TodoRepository) ListWithOwners(ctx context.Context, offset, limit int) ([]types.TodoWithOwner, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	const countQuery = `SELECT COUNT(1) FROM todos`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT t.id, t.title, t.description, t.completed, t.created_at, t.updated_at,
		       u.id, u.name, u.email
		FROM todos t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at, t.id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	todos := make([]types.TodoWithOwner, 0, limit)
	for rows.Next() {
		var todo types.TodoWithOwner
		if err := rows.Scan(
			&todo.ID,
			&todo.Title,
			&todo.Description,
			&todo.Completed,
			&todo.CreatedAt,
			&todo.UpdatedAt,
			&todo.User.ID,
			&todo.User.Name,
			&todo.User.Email,
		); err != nil {
			return nil, 0, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return todos, total, nil
}

// Counts aggregates todos owned by ownerID, or every todo when ownerID is empty.
func (r *TodoRepository) Counts(ctx context.Context, ownerID string, since time.Time) (types.TodoCounts, error) {
	const query = `
		SELECT COUNT(1),
		       COUNT(1) FILTER (WHERE completed),
		       COUNT(1) FILTER (WHERE created_at >= $2)
		FROM todos
		WHERE ($1 = '' OR user_id::text = $1)`
	var counts types.TodoCounts
	if err := r.db.QueryRowContext(ctx, query, ownerID, since).Scan(
		&counts.Total,
		&counts.Completed,
		&counts.CreatedSince,
	); err != nil {
		return types.TodoCounts{}, err
	}
	return counts, nil
}
