// Package adapters provides the production channel adapters the dispatcher
// fans out to: Resend-backed email, queue-backed push hand-off, and a
// gateway-logging SMS sender. Each adapter resolves the user's contact
// point through the Directory.
package adapters

import (
	"context"
	"errors"
)

// Contact is the delivery addressing for one user.
type Contact struct {
	Email string
	Phone string
}

// Directory resolves a user id to delivery addressing. The user repository
// implements it.
type Directory interface {
	ContactForUser(ctx context.Context, userID string) (Contact, error)
}

// ErrNoContact reports a user with no usable address for the channel.
var ErrNoContact = errors.New("no contact information for user")
