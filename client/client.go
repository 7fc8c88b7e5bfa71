// Package client is a typed HTTP client for the taskboard API that keeps a
// shared Session in sync with the server's view of the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taskboard/apiserver/types"
)

// SessionExpiredMessage is passed to Options.OnSessionExpired.
const SessionExpiredMessage = "Session expired. Please login again."

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("taskboard: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("taskboard: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Options configure a Client. Zero values get defaults.
type Options struct {
	HTTPClient *http.Client
	Session    *Session
	Tokens     TokenStore
	// OnSessionExpired runs once each time an authenticated session is
	// ended by a 401 response.
	OnSessionExpired func(message string)
}

// Client calls the taskboard API.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *Session
	tokens    TokenStore
	onExpired func(string)
}

func New(baseURL string, opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      opts.HTTPClient,
		session:   opts.Session,
		tokens:    opts.Tokens,
		onExpired: opts.OnSessionExpired,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.session == nil {
		c.session = NewSession()
	}
	if c.tokens == nil {
		c.tokens = &MemoryTokenStore{}
	}
	return c
}

// Session returns the session this client keeps up to date.
func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Pagination *types.Pagination `json:"pagination"`
	Token      string            `json:"token"`
	User       *types.PublicUser `json:"user"`
}

// RegisterRequest is the payload of Register.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone,omitempty"`
	Role     *types.Role `json:"role,omitempty"`
}

// UpdateDetailsRequest changes profile fields; nil fields are left as they are.
type UpdateDetailsRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Bootstrap resolves the stored token into a session. Any failure leaves the
// session unauthenticated; Loading is false afterwards either way.
func (c *Client) Bootstrap(ctx context.Context) error {
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		c.session.demote()
		return err
	}

	var user types.PublicUser
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &user, nil); err != nil {
		c.session.demote()
		if IsUnauthorized(err) {
			return nil
		}
		return err
	}
	c.session.authenticate(user)
	return nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (types.PublicUser, error) {
	return c.startSession(ctx, http.MethodPost, "/api/auth/register", req)
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (types.PublicUser, error) {
	return c.startSession(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
}

// Logout forgets the token locally and asks the server to clear its cookie.
// The local session ends even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodGet, "/api/auth/logout", nil, nil, nil)
	if clearErr := c.tokens.ClearToken(); clearErr != nil && err == nil {
		err = clearErr
	}
	c.session.demote()
	return err
}

// Me fetches the signed-in user and refreshes the session with it.
func (c *Client) Me(ctx context.Context) (types.PublicUser, error) {
	var user types.PublicUser
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &user, nil); err != nil {
		return types.PublicUser{}, err
	}
	c.session.authenticate(user)
	return user, nil
}

// UpdateDetails changes the caller's name and phone.
func (c *Client) UpdateDetails(ctx context.Context, req UpdateDetailsRequest) (types.PublicUser, error) {
	var user types.PublicUser
	if err := c.call(ctx, http.MethodPut, "/api/auth/updatedetails", req, &user, nil); err != nil {
		return types.PublicUser{}, err
	}
	c.session.authenticate(user)
	return user, nil
}

// UpdatePassword changes the caller's password and stores the fresh token.
func (c *Client) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	_, err := c.startSession(ctx, http.MethodPut, "/api/auth/updatepassword", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	})
	return err
}

// CreateTodo adds a todo owned by the caller.
func (c *Client) CreateTodo(ctx context.Context, title, description string) (types.Todo, error) {
	var todo types.Todo
	err := c.call(ctx, http.MethodPost, "/api/todos", map[string]string{
		"title":       title,
		"description": description,
	}, &todo, nil)
	return todo, err
}

// MyTodos lists the caller's todos, oldest first.
func (c *Client) MyTodos(ctx context.Context) ([]types.Todo, error) {
	var todos []types.Todo
	err := c.call(ctx, http.MethodGet, "/api/todos/my", nil, &todos, nil)
	return todos, err
}

// AllTodos lists one page of every user's todos. Admin only.
func (c *Client) AllTodos(ctx context.Context, page int) ([]types.TodoWithOwner, types.Pagination, error) {
	var (
		todos []types.TodoWithOwner
		env   envelope
	)
	path := "/api/todos/all?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &todos, &env); err != nil {
		return nil, types.Pagination{}, err
	}
	var pagination types.Pagination
	if env.Pagination != nil {
		pagination = *env.Pagination
	}
	return todos, pagination, nil
}

// UpdateTodo applies a partial update to one of the caller's todos.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch types.TodoPatch) (types.Todo, error) {
	var todo types.Todo
	err := c.call(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id), patch, &todo, nil)
	return todo, err
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil, nil)
}

// Stats returns the caller's todo statistics.
func (c *Client) Stats(ctx context.Context) (types.TodoStats, error) {
	var stats types.TodoStats
	err := c.call(ctx, http.MethodGet, "/api/todos/stats", nil, &stats, nil)
	return stats, err
}

// GlobalStats returns statistics over every todo. Admin only.
func (c *Client) GlobalStats(ctx context.Context) (types.GlobalStats, error) {
	var stats types.GlobalStats
	err := c.call(ctx, http.MethodGet, "/api/todos/stats", nil, &stats, nil)
	return stats, err
}

// UserCount returns the number of registered users. Admin only.
func (c *Client) UserCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.call(ctx, http.MethodGet, "/api/users/count", nil, &out, nil)
	return out.Count, err
}

// Users lists one page of registered users. Admin only.
func (c *Client) Users(ctx context.Context, page int) ([]types.PublicUser, types.Pagination, error) {
	var (
		users []types.PublicUser
		env   envelope
	)
	path := "/api/users?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &users, &env); err != nil {
		return nil, types.Pagination{}, err
	}
	var pagination types.Pagination
	if env.Pagination != nil {
		pagination = *env.Pagination
	}
	return users, pagination, nil
}

func (c *Client) startSession(ctx context.Context, method, path string, body any) (types.PublicUser, error) {
	var env envelope
	if err := c.call(ctx, method, path, body, nil, &env); err != nil {
		return types.PublicUser{}, err
	}
	if env.Token == "" || env.User == nil {
		return types.PublicUser{}, errors.New("taskboard: response carries no session")
	}
	if err := c.tokens.SetToken(env.Token); err != nil {
		return types.PublicUser{}, err
	}
	c.session.authenticate(*env.User)
	return *env.User, nil
}

// call sends one request. data receives the envelope's data field and raw, if
// set, the whole envelope.
func (c *Client) call(ctx context.Context, method, path string, body, data any, raw *envelope) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.tokens.Token(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode == http.StatusUnauthorized {
		c.expire()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("taskboard: decode response: %w", decodeErr)
	}

	if raw != nil {
		*raw = env
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("taskboard: decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) expire() {
	_ = c.tokens.ClearToken()
	if c.session.demote() && c.onExpired != nil {
		c.onExpired(SessionExpiredMessage)
	}
}
