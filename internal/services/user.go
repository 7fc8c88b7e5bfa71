package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// UsersPageSize is the fixed page size of the admin user listing.
const UsersPageSize = 10

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Count(ctx context.Context) (int, error)
}

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required,min=6,max=128"`
	Phone    string      `json:"phone" validate:"omitempty,phone"`
	Role     *types.Role `json:"role"`
}

// UpdateDetailsInput changes profile fields. Nil fields are left untouched.
type UpdateDetailsInput struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=100"`
	Phone *string `json:"phone"`
}

type updatePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a freshly issued session for a user.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// UserService encapsulates registration, login and profile use-cases.
type UserService struct {
	repo   UserRepository
	tokens *auth.TokenService
	now    func() time.Time
	newID  func() string
}

// NewUserService wires a UserService over repo, signing sessions with tokens.
func NewUserService(repo UserRepository, tokens *auth.TokenService) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser validates and stores a new user without issuing a token.
func (s *UserService) CreateUser(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return types.User{}, err
	}

	role := types.RoleClient
	if in.Role != nil {
		if !in.Role.Valid() {
			return types.User{}, &ValidationError{Field: "role", Message: "role is invalid"}
		}
		role = *in.Role
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         role,
		PasswordHash: hashed,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

// Register creates an account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	in := loginInput{Email: NormalizeEmail(email), Password: password}
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Keep response timing close to the wrong-password path.
			auth.CheckPassword(in.Password, decoyHash())
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !auth.CheckPassword(in.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

// GetByID loads a user. Ids that cannot exist are reported as not found.
func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, ErrUserNotFound
	}
	user, err := s.repo.GetByID(ctx, id)
	return user, userNotFound(err)
}

// Me returns the profile of the authenticated user.
func (s *UserService) Me(ctx context.Context, userID string) (types.User, error) {
	return s.GetByID(ctx, userID)
}

// UpdateDetails changes name and phone only.
func (s *UserService) UpdateDetails(ctx context.Context, userID string, in UpdateDetailsInput) (types.User, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		in.Phone = &phone
	}
	if err := validateStruct(in); err != nil {
		return types.User{}, err
	}
	// An empty phone clears it.
	if in.Phone != nil && *in.Phone != "" && !phonePattern.MatchString(*in.Phone) {
		return types.User{}, &ValidationError{Field: "phone", Message: "phone must be a valid phone number"}
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	user.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, user)
	return updated, userNotFound(err)
}

// UpdatePassword requires the current password and returns a fresh token.
// Tokens issued earlier stay valid until they expire.
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) (AuthResult, error) {
	if err := validateStruct(updatePasswordInput{CurrentPassword: currentPassword, NewPassword: newPassword}); err != nil {
		return AuthResult{}, err
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}
	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return AuthResult{}, ErrIncorrectPassword
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return AuthResult{}, err
	}
	user.PasswordHash = hashed
	user.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return AuthResult{}, userNotFound(err)
	}
	return s.issue(updated)
}

// Count returns the number of registered users.
func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// List returns one page of users in registration order.
func (s *UserService) List(ctx context.Context, page int) ([]types.User, types.Pagination, error) {
	if page < 1 {
		page = 1
	}
	users, total, err := s.repo.List(ctx, pageOffset(page, UsersPageSize), UsersPageSize)
	if err != nil {
		return nil, types.Pagination{}, err
	}
	return users, types.NewPagination(page, UsersPageSize, total), nil
}

func (s *UserService) issue(user types.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

var (
	decoyOnce sync.Once
	decoy     string
)

func decoyHash() string {
	decoyOnce.Do(func() {
		decoy, _ = auth.HashPassword(uuid.NewString())
	})
	return decoy
}

// userNotFound narrows a repository miss on a user lookup to ErrUserNotFound.
func userNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
