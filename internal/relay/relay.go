// Package relay bridges selected bus events onto Kafka so downstream
// consumers (analytics, audit) see them without coupling to this process.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
)

// Producer is the Kafka publishing capability the relay needs.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Relay republishes NOTIFICATION_SENT events to the configured topic.
type Relay struct {
	producer Producer
	logger   *slog.Logger
}

func New(producer Producer, logger *slog.Logger) *Relay {
	return &Relay{producer: producer, logger: logger}
}

// Bind subscribes the relay on the bus. Publish failures are logged; the
// relay is an observer and never disturbs the dispatch path.
func (r *Relay) Bind(bus *events.Bus) {
	bus.Subscribe(events.NotificationSent, "kafka-relay", func(ctx context.Context, e events.Event) error {
		sent, ok := e.Payload.(notification.SentEvent)
		if !ok {
			r.logger.Warn("unexpected payload on notification sent event")
			return nil
		}
		body, err := json.Marshal(sent)
		if err != nil {
			return err
		}
		return r.producer.Publish(ctx, sent.UserID, body)
	})
}
