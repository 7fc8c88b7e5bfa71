package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	userService *services.UserService
	logger      *log.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userService *services.UserService, logger *log.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers admin-only user routes.
func UserRouter(r chi.Router, handler *UserHandler, authn func(http.Handler) http.Handler) {
	r.Use(authn, Authorize(types.RoleAdmin))

	r.Get("/", handler.ListUsers)
	r.Get("/count", handler.CountUsers)
}

// CountResponse is the payload of GET /api/users/count.
type CountResponse struct {
	Count int `json:"count"`
}

// CountUsers returns the number of registered users.
func (h *UserHandler) CountUsers(w http.ResponseWriter, r *http.Request) {
	count, err := h.userService.Count(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, CountResponse{Count: count})
}

// ListUsers returns one page of users without credentials.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, pagination, err := h.userService.List(r.Context(), parsePage(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	public := make([]types.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: public, Pagination: &pagination})
}
