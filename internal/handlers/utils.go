package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

const maxBodyBytes = 1 << 20

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Pagination *types.Pagination `json:"pagination,omitempty"`
	Token      string            `json:"token,omitempty"`
	User       *types.PublicUser `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// writeServiceError maps service errors to statuses. Unexpected errors are
// logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *log.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, services.ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized to access this todo")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Todo not found")
	default:
		if logger != nil {
			logger.Error("request failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parsePage reads ?page=N. Missing, malformed and non-positive values mean page 1.
func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
