package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// TodoHandler provides HTTP handlers for todos.
type TodoHandler struct {
	todoService *services.TodoService
	logger      *log.Logger
}

// NewTodoHandler constructs a handler with the provided service.
func NewTodoHandler(todoService *services.TodoService, logger *log.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, logger: logger}
}

// TodoRouter registers todo routes on the given router.
func TodoRouter(r chi.Router, handler *TodoHandler, authn func(http.Handler) http.Handler) {
	r.Use(authn)

	r.With(Authorize(types.RoleClient)).Post("/", handler.CreateTodo)
	r.With(Authorize(types.RoleClient)).Get("/my", handler.MyTodos)
	r.With(Authorize(types.RoleAdmin)).Get("/all", handler.AllTodos)
	r.With(Authorize(types.RoleClient, types.RoleAdmin)).Get("/stats", handler.Stats)
	r.Route("/{todoID}", func(r chi.Router) {
		r.With(Authorize(types.RoleClient)).Put("/", handler.UpdateTodo)
		r.With(Authorize(types.RoleClient, types.RoleAdmin)).Delete("/", handler.DeleteTodo)
	})
}

// CreateTodoRequest is the body of POST /api/todos. Ownership comes from the session.
type CreateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTodo stores a todo owned by the caller.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := h.todoService.Create(r.Context(), user.ID, services.CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusCreated, todo)
}

// MyTodos lists the caller's todos.
func (h *TodoHandler) MyTodos(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	todos, err := h.todoService.ListOwn(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if todos == nil {
		todos = []types.Todo{}
	}

	writeData(w, http.StatusOK, todos)
}

// AllTodos lists one page of every user's todos.
func (h *TodoHandler) AllTodos(w http.ResponseWriter, r *http.Request) {
	todos, pagination, err := h.todoService.ListAll(r.Context(), parsePage(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if todos == nil {
		todos = []types.TodoWithOwner{}
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: todos, Pagination: &pagination})
}

// Stats returns the caller's statistics, or global ones for admins.
func (h *TodoHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	if user.Role == types.RoleAdmin {
		stats, err := h.todoService.GlobalStats(r.Context())
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		writeData(w, http.StatusOK, stats)
		return
	}

	stats, err := h.todoService.Stats(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// UpdateTodo applies a partial update to one of the caller's todos.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var patch types.TodoPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	todo, err := h.todoService.Update(r.Context(), chi.URLParam(r, "todoID"), user, patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, todo)
}

// DeleteTodo removes a todo owned by the caller, or any todo for admins.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	if err := h.todoService.Delete(r.Context(), chi.URLParam(r, "todoID"), user); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Todo deleted"})
}
