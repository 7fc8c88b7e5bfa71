package services

import (
	"errors"
	"fmt"

	"github.com/taskboard/apiserver/internal/store"
)

var (
	// ErrNotFound is returned when a referenced user or todo does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrUserNotFound is returned when a user id resolves to no account.
	ErrUserNotFound = fmt.Errorf("user not found: %w", ErrNotFound)

	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("user already exists")

	// ErrInvalidCredentials deliberately does not say whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIncorrectPassword is returned by password changes with a wrong current password.
	ErrIncorrectPassword = fmt.Errorf("current password is incorrect: %w", ErrInvalidCredentials)

	// ErrForbidden is returned when an authenticated caller may not touch a resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes the first invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
