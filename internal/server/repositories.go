package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/db"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/internal/store/memstore"
	"github.com/taskboard/apiserver/internal/store/mongostore"
)

// Repositories are the persistence ports of the selected store backend.
type Repositories struct {
	Users services.UserRepository
	Todos services.TodoRepository
	close func(context.Context) error
}

// Close releases the backend connection.
func (r Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// OpenRepositories connects to the store selected by cfg.StoreBackend.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", config.StorePostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return Repositories{}, fmt.Errorf("postgres: %w", err)
		}
		return Repositories{
			Users: store.NewUserRepository(conn),
			Todos: store.NewTodoRepository(conn),
			close: func(context.Context) error { return conn.Close() },
		}, nil
	case config.StoreMongo:
		client, database, err := mongostore.Open(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, fmt.Errorf("mongo: %w", err)
		}
		return Repositories{
			Users: mongostore.NewUserRepository(database),
			Todos: mongostore.NewTodoRepository(database),
			close: client.Disconnect,
		}, nil
	case config.StoreMemory:
		mem := memstore.New()
		return Repositories{Users: mem.Users(), Todos: mem.Todos()}, nil
	default:
		return Repositories{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
