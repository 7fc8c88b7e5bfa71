package types

import "time"

// Todo represents a task owned by exactly one user.
type Todo struct {
	// ID is the unique identifier of the todo.
	ID string `json:"id" db:"id" bson:"_id"`

	// Title is the required short summary of the task.
	Title string `json:"title" db:"title" bson:"title"`

	// Description holds optional free-form details.
	Description string `json:"description" db:"description" bson:"description"`

	// Completed marks the task as done.
	Completed bool `json:"completed" db:"completed" bson:"completed"`

	// UserID references the owning user. It never changes after creation.
	UserID string `json:"user" db:"user_id" bson:"user_id"`

	// CreatedAt is the timestamp at which the todo was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the todo.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// TodoOwner is the owner identity joined into admin listings.
type TodoOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TodoWithOwner is a todo with its owner's name and email populated.
type TodoWithOwner struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	User        TodoOwner `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TodoPatch is a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// Apply copies the present fields of p onto todo.
func (p TodoPatch) Apply(todo *Todo) {
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.Description != nil {
		todo.Description = *p.Description
	}
	if p.Completed != nil {
		todo.Completed = *p.Completed
	}
}

// TodoStats summarizes one user's todos.
type TodoStats struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Pending         int     `json:"pending"`
	LastWeekCreated int     `json:"lastWeekCreated"`
	CompletionRate  float64 `json:"completionRate"`
}

// GlobalStats summarizes every todo in the system for administrators.
type GlobalStats struct {
	TodoStats
	Users int `json:"users"`
}

// TodoCounts are the raw counters stats are derived from.
type TodoCounts struct {
	Total        int
	Completed    int
	CreatedSince int
}

// Pagination describes a page of a deterministic listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
}

// NewPagination derives the page count for totalCount items.
func NewPagination(page, pageSize, totalCount int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: totalCount,
	}
}

// TodoEventType names a todo lifecycle transition.
type TodoEventType string

const (
	TodoCreated TodoEventType = "todo.created"
	TodoUpdated TodoEventType = "todo.updated"
	TodoDeleted TodoEventType = "todo.deleted"
)

// TodoEvent is published after a todo changes.
type TodoEvent struct {
	Type       TodoEventType `json:"type"`
	TodoID     string        `json:"todoId"`
	UserID     string        `json:"userId"`
	ActorID    string        `json:"actorId"`
	OccurredAt time.Time     `json:"occurredAt"`
}
