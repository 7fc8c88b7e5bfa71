package handlers

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// AuthHandler provides registration, login and profile endpoints.
type AuthHandler struct {
	userService  *services.UserService
	tokens       *auth.TokenService
	cookieSecure bool
	logger       *log.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenService, cookieSecure bool, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokens:       tokens,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authn func(http.Handler) http.Handler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/me", handler.Me)
		r.Put("/updatedetails", handler.UpdateDetails)
		r.Put("/updatepassword", handler.UpdatePassword)
	})
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     *types.Role `json:"role"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateDetailsRequest carries the profile fields a user may change.
type UpdateDetailsRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdatePasswordRequest is the body of PUT /updatepassword.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register creates a new account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.userService.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.writeSession(w, http.StatusCreated, result)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.writeSession(w, http.StatusOK, result)
}

// Logout clears the session cookie. Bearer tokens stay valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "User logged out successfully"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	writeData(w, http.StatusOK, user.Public())
}

// UpdateDetails changes the caller's name and phone.
func (h *AuthHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var req UpdateDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.userService.UpdateDetails(r.Context(), user.ID, services.UpdateDetailsInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, updated.Public())
}

// UpdatePassword changes the caller's password and issues a fresh token.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	var req UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.userService.UpdatePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.writeSession(w, http.StatusOK, result)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, result services.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	public := result.User.Public()
	writeJSON(w, status, Response{Success: true, Token: result.Token, User: &public})
}
