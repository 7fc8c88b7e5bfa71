package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/handlers"
	"github.com/taskboard/apiserver/internal/logging"
	"github.com/taskboard/apiserver/internal/mq"
	"github.com/taskboard/apiserver/internal/services"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	repos      Repositories
	queue      *mq.MQ
	logger     *log.Logger
}

// New opens the configured backends and builds the router.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = repos.Close(ctx)
		return nil, err
	}

	var events services.EventPublisher
	if queue != nil {
		events = mq.NewTodoEventPublisher(queue, cfg.MQ.TodoEventChannel)
		logger.Info("publishing todo events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.TodoEventChannel)
	}

	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	userService := services.NewUserService(repos.Users, tokens)
	todoService := services.NewTodoService(repos.Todos, repos.Users, events, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	authn := handlers.Authenticate(tokens, userService)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(userService, tokens, cfg.Auth.CookieSecure, logger), authn)
	})
	router.Route("/api/todos", func(r chi.Router) {
		handlers.TodoRouter(r, handlers.NewTodoHandler(todoService, logger), authn)
	})
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, handlers.NewUserHandler(userService, logger), authn)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		repos:      repos,
		queue:      queue,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		if qerr := s.queue.Close(); qerr != nil {
			s.logger.Warn("failed to close message queue", "err", qerr)
		}
	}
	if rerr := s.repos.Close(ctx); rerr != nil {
		s.logger.Warn("failed to close store", "err", rerr)
	}
	return err
}
