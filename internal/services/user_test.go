package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/store/memstore"
	"github.com/taskboard/apiserver/types"
)

func newUserService(t *testing.T) (*UserService, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	return NewUserService(memstore.New().Users(), tokens), tokens
}

func TestRegisterIssuesTokenForNewUser(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Name:     "Ann",
		Email:    "  Ann@Example.COM ",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", result.User.Email)
	assert.Equal(t, types.RoleClient, result.User.Role)
	assert.NotEqual(t, "secret1", result.User.PasswordHash)
	assert.True(t, auth.CheckPassword("secret1", result.User.PasswordHash))

	subject, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ANN@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	badRole := types.Role(7)

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing name", RegisterInput{Email: "a@x.com", Password: "secret1"}, "name"},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "secret1"}, "email"},
		{"short password", RegisterInput{Name: "A", Email: "a@x.com", Password: "123"}, "password"},
		{"bad phone", RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Phone: "call me"}, "phone"},
		{"unknown role", RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: &badRole}, "role"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRegisterAdminRole(t *testing.T) {
	svc, _ := newUserService(t)
	admin := types.RoleAdmin

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "secret1",
		Phone:    "+1 555 0100",
		Role:     &admin,
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, result.User.Role)
	assert.Equal(t, "+1 555 0100", result.User.Phone)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "ANN@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetByIDRejectsMalformedID(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateDetailsOnlyTouchesNameAndPhone(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	name := " Ann B "
	phone := "555-123-4567"
	updated, err := svc.UpdateDetails(ctx, registered.User.ID, UpdateDetailsInput{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", updated.Name)
	assert.Equal(t, "555-123-4567", updated.Phone)
	assert.Equal(t, "ann@example.com", updated.Email)
	assert.Equal(t, registered.User.PasswordHash, updated.PasswordHash)

	empty := ""
	_, err = svc.UpdateDetails(ctx, registered.User.ID, UpdateDetailsInput{Name: &empty})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	cleared, err := svc.UpdateDetails(ctx, registered.User.ID, UpdateDetailsInput{Phone: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Phone)
	assert.Equal(t, "Ann B", cleared.Name)
}

func TestUpdatePassword(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.UpdatePassword(ctx, registered.User.ID, "wrong", "newsecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = svc.UpdatePassword(ctx, registered.User.ID, "secret1", "123")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "newPassword", verr.Field)

	result, err := svc.UpdatePassword(ctx, registered.User.ID, "secret1", "newsecret")
	require.NoError(t, err)
	subject, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, subject)

	_, err = svc.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ann@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestListUsersPaginates(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i := 0; i < UsersPageSize+2; i++ {
		_, err := svc.CreateUser(ctx, RegisterInput{
			Name:     "User",
			Email:    "user" + string(rune('a'+i)) + "@example.com",
			Password: "secret1",
		})
		require.NoError(t, err)
	}

	first, pagination, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, first, UsersPageSize)
	assert.Equal(t, types.Pagination{Page: 1, PageSize: UsersPageSize, TotalPages: 2, TotalCount: UsersPageSize + 2}, pagination)
	assert.Equal(t, "usera@example.com", first[0].Email)

	second, _, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second, 2)

	far, pagination, err := svc.List(ctx, math.MaxInt/UsersPageSize+2)
	require.NoError(t, err)
	assert.Empty(t, far)
	assert.Equal(t, UsersPageSize+2, pagination.TotalCount)
}

func TestProfileChangesForMissingUser(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	missing := uuid.NewString()

	name := "Ghost"
	_, err := svc.UpdateDetails(ctx, missing, UpdateDetailsInput{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.UpdatePassword(ctx, missing, "secret1", "newsecret")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Me(ctx, missing)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}
