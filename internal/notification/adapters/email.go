package adapters

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
)

var emailBody = template.Must(template.New("email").Parse(`
<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .URL}}<p><a href="{{.URL}}">View details</a></p>{{end}}
</div>
`))

// ResendEmail sends notification emails through Resend.
type ResendEmail struct {
	client    *resend.Client
	from      string
	directory Directory
	logger    *slog.Logger
}

func NewResendEmail(apiKey, from string, directory Directory, logger *slog.Logger) *ResendEmail {
	if from == "" {
		from = "onboarding@resend.dev"
	}
	return &ResendEmail{
		client:    resend.NewClient(apiKey),
		from:      from,
		directory: directory,
		logger:    logger,
	}
}

func (a *ResendEmail) Send(ctx context.Context, userID, subject, message string, n *notification.Notification) error {
	contact, err := a.directory.ContactForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve email for user %s: %w", userID, err)
	}
	if contact.Email == "" {
		return fmt.Errorf("%w: user %s has no email", ErrNoContact, userID)
	}

	var body bytes.Buffer
	if err := emailBody.Execute(&body, map[string]string{
		"Title":   subject,
		"Message": message,
		"URL":     n.URL,
	}); err != nil {
		return fmt.Errorf("render email body: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    a.from,
		To:      []string{contact.Email},
		Subject: subject,
		Html:    body.String(),
	}
	if _, err := a.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email via resend: %w", err)
	}

	a.logger.Info("email delivered", "user_id", userID, "notification_id", n.ID)
	return nil
}
