// Package notification implements the outbound notification core: the
// persisted notification record, the static message catalog and the
// dispatcher that gates on user preferences and fans delivery out across
// channels.
package notification

import (
	"errors"
	"time"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

// Priority of a notification, carried to the delivery tier.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// ErrMissingUser rejects a send request that carries no user id.
var ErrMissingUser = errors.New("notification request without user")

// Notification is the persisted record of one outbound notification.
// DeliveryChannels is a snapshot of the user's preference at creation time;
// later preference changes never alter it. Only the Read and Sent flags
// change after creation.
type Notification struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	Source           string               `json:"source"`
	Category         preference.Category  `json:"category"`
	Type             string               `json:"type"`
	Title            string               `json:"title"`
	Message          string               `json:"message"`
	ActionCode       string               `json:"action_code,omitempty"`
	ActionData       map[string]string    `json:"action_data,omitempty"`
	URL              string               `json:"url,omitempty"`
	Read             bool                 `json:"read"`
	Sent             bool                 `json:"sent"`
	DeliveryChannels []preference.Channel `json:"delivery_channels"`
	Priority         Priority             `json:"priority"`
	CreatedAt        time.Time            `json:"created_at"`
}

// SendRequest is the input to Dispatcher.SendToUser. Title, Message, Code
// and Priority are optional; the catalog supplies defaults keyed by
// Category and Type.
type SendRequest struct {
	UserID   string              `json:"user_id"`
	Source   string              `json:"source"`
	Category preference.Category `json:"category"`
	Type     string              `json:"type"`
	Title    string              `json:"title,omitempty"`
	Message  string              `json:"message,omitempty"`
	Code     string              `json:"code,omitempty"`
	Data     map[string]string   `json:"data,omitempty"`
	URL      string              `json:"url,omitempty"`
	Priority Priority            `json:"priority,omitempty"`
}

// SentEvent is the payload of the NOTIFICATION_SENT bus event.
type SentEvent struct {
	UserID       string        `json:"user_id"`
	Notification *Notification `json:"notification"`
}
