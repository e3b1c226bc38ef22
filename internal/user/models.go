// Package user owns the user records of the CRUD shell. Detail reads go
// through the shared cache; mutations emit the domain events that keep that
// cache coherent.
package user

import (
	"errors"
	"time"
)

// ErrNotFound reports a lookup for a user that does not exist.
var ErrNotFound = errors.New("user not found")

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateInput carries the fields accepted on user creation.
type CreateInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}
