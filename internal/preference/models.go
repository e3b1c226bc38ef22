// Package preference owns per-user notification preferences: which
// categories a user receives and over which delivery channels. Reads and
// writes flow through the shared read-through cache; the document store
// stays authoritative.
package preference

import (
	"errors"
	"time"
)

// Category is a class of notification a user can toggle independently.
type Category string

const (
	CategoryAccount   Category = "ACCOUNT"
	CategorySupport   Category = "SUPPORT"
	CategorySystem    Category = "SYSTEM"
	CategoryMarketing Category = "MARKETING"
)

// Categories lists every recognized category.
var Categories = []Category{CategoryAccount, CategorySupport, CategorySystem, CategoryMarketing}

// Channel is a delivery mechanism for notification content.
type Channel string

const (
	ChannelPush  Channel = "PUSH"
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Channels lists every recognized channel.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelSMS}

var (
	// ErrUnknownCategory rejects a category outside the enumerated set.
	ErrUnknownCategory = errors.New("unknown notification category")
	// ErrUnknownChannel rejects a channel outside the enumerated set.
	ErrUnknownChannel = errors.New("unknown delivery channel")
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAccount, CategorySupport, CategorySystem, CategoryMarketing:
		return true
	}
	return false
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// NotificationPreference is the single preference document for a user.
type NotificationPreference struct {
	UserID     string            `json:"user_id"`
	Categories map[Category]bool `json:"categories"`
	Channels   []Channel         `json:"channels"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Default returns the preference a user starts with: every category enabled
// and push as the only delivery channel.
func Default(userID string) *NotificationPreference {
	cats := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		cats[c] = true
	}
	return &NotificationPreference{
		UserID:     userID,
		Categories: cats,
		Channels:   []Channel{ChannelPush},
	}
}

// Enabled reports whether the user receives notifications of the category.
// Categories absent from the map default to enabled, matching the lazily
// created document.
func (p *NotificationPreference) Enabled(c Category) bool {
	enabled, ok := p.Categories[c]
	if !ok {
		return true
	}
	return enabled
}
