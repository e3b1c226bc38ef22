// Package ticket owns support tickets. Detail reads are cached; mutations
// emit TICKET_UPDATE to invalidate.
package ticket

import (
	"errors"
	"time"
)

// ErrNotFound reports a lookup for a ticket that does not exist.
var ErrNotFound = errors.New("ticket not found")

type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusPending Status = "PENDING"
	StatusClosed  Status = "CLOSED"
)

type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateInput struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
	Status  *Status `json:"status,omitempty"`
}
