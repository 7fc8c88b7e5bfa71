package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store/memstore"
	"github.com/taskboard/apiserver/types"
)

func TestUserCreateOptionsInput(t *testing.T) {
	opts := userCreateOptions{name: "Ops", email: "ops@example.com", role: "admin"}

	in, err := opts.input("secret1")
	require.NoError(t, err)
	require.NotNil(t, in.Role)
	assert.Equal(t, types.RoleAdmin, *in.Role)
	assert.Equal(t, "secret1", in.Password)

	opts.role = "root"
	_, err = opts.input("secret1")
	assert.Error(t, err)
}

func TestRunCreateUser(t *testing.T) {
	repo := memstore.New().Users()
	users := services.NewUserService(repo, auth.NewTokenService([]byte("cli"), time.Hour))
	admin := types.RoleAdmin

	var out bytes.Buffer
	err := runCreateUser(context.Background(), users, services.RegisterInput{
		Name:     "Ops",
		Email:    "Ops@Example.com",
		Password: "secret1",
		Role:     &admin,
	}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "created admin user ops@example.com ("))

	stored, err := repo.GetByEmail(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, stored.Role)

	err = runCreateUser(context.Background(), users, services.RegisterInput{
		Name:     "Ops",
		Email:    "ops@example.com",
		Password: "secret1",
	}, &out)
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)
}

func TestPromptPasswordFromPipe(t *testing.T) {
	var prompt bytes.Buffer

	password, err := promptPassword(strings.NewReader("hunter22\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", password)
	assert.Empty(t, prompt.String())

	_, err = promptPassword(strings.NewReader(""), &prompt)
	assert.EqualError(t, err, "password is required")
}

func TestLogTodoEvent(t *testing.T) {
	var buf bytes.Buffer
	handle := logTodoEvent(log.New(&buf))

	require.NoError(t, handle(context.Background(), types.TodoEvent{Type: types.TodoCreated, TodoID: "t1", UserID: "u1"}))
	assert.Contains(t, buf.String(), "todo.created")
	assert.Contains(t, buf.String(), "todo_id=t1")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"server"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"user", "create"},
		{"export", "todos"},
		{"events", "watch"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
