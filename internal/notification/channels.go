package notification

import (
	"context"
)

// Channel adapters are the external delivery collaborators. The dispatcher
// selects one per enabled channel in the preference snapshot; each call is
// independently timed out and its failure isolated.

// PushSender delivers a push notification. Token resolution for the user's
// devices belongs to the adapter.
type PushSender interface {
	Send(ctx context.Context, userID, title, message, url string, n *Notification) error
}

// EmailSender delivers an email notification.
type EmailSender interface {
	Send(ctx context.Context, userID, subject, message string, n *Notification) error
}

// SMSSender delivers an SMS notification.
type SMSSender interface {
	Send(ctx context.Context, userID, message string) error
}

// Adapters bundles the configured channel adapters. A nil adapter means the
// channel is not configured in this deployment; deliveries to it are logged
// and skipped.
type Adapters struct {
	Push  PushSender
	Email EmailSender
	SMS   SMSSender
}
