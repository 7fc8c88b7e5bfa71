package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id" bson:"_id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name" bson:"name"`

	// Email is the user's email address. It is unique and stored lowercase.
	Email string `json:"email" db:"email" bson:"email"`

	// Phone is an optional contact number.
	Phone string `json:"phone" db:"phone" bson:"phone"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role" bson:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash" bson:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

// PublicUser is the subset of a user returned alongside auth tokens.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Phone string `json:"phone"`
}

// Public strips everything but the identity fields.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Phone: u.Phone,
	}
}

// Role is the closed set of authorization levels.
// The numeric values are part of the wire format.
type Role int

const (
	// RoleAdmin can view aggregate statistics and moderate all todos.
	RoleAdmin Role = 0

	// RoleClient manages its own todos.
	RoleClient Role = 1
)

// ParseRole accepts the wire names of a role.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "0":
		return RoleAdmin, nil
	case "client", "1":
		return RoleClient, nil
	default:
		return 0, fmt.Errorf("unknown role %q", value)
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// UnmarshalJSON accepts either the numeric wire value or the role name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		role := Role(n)
		if !role.Valid() {
			return fmt.Errorf("unknown role %d", n)
		}
		*r = role
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid role: %s", string(data))
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
