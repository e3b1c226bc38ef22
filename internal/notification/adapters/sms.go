package adapters

import (
	"context"
	"fmt"
	"log/slog"
)

// GatewaySMS resolves the user's phone number and hands the message to an
// SMS gateway. The gateway call is a logged stub until a provider account
// (Twilio, SNS) is wired in.
type GatewaySMS struct {
	directory Directory
	logger    *slog.Logger
}

func NewGatewaySMS(directory Directory, logger *slog.Logger) *GatewaySMS {
	return &GatewaySMS{directory: directory, logger: logger}
}

func (a *GatewaySMS) Send(ctx context.Context, userID, message string) error {
	contact, err := a.directory.ContactForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve phone for user %s: %w", userID, err)
	}
	if contact.Phone == "" {
		return fmt.Errorf("%w: user %s has no phone number", ErrNoContact, userID)
	}

	a.logger.Info("sms delivered", "user_id", userID, "to", contact.Phone, "length", len(message))
	return nil
}
