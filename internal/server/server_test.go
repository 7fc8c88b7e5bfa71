package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/config"
)

func memoryConfig() config.Config {
	return config.Config{
		StoreBackend: config.StoreMemory,
		Auth: config.AuthConfig{
			JWTSecret: "server-secret",
			TokenTTL:  time.Hour,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		MQ:   config.MQConfig{Backend: "none"},
	}
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.JWTSecret = ""

	_, err := New(context.Background(), cfg, log.New(io.Discard))
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "sqlite"

	_, err := New(context.Background(), cfg, log.New(io.Discard))
	assert.ErrorContains(t, err, "unknown STORE_BACKEND")
}

func TestRouterServesAPI(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig(), log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	assert.Equal(t, ":8080", srv.Addr())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	body, _ := json.Marshal(map[string]string{"name": "Ann", "email": "ann@example.com", "password": "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req = httptest.NewRequest(http.MethodGet, "/api/todos/my", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig(), log.New(io.Discard))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/todos/my", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
