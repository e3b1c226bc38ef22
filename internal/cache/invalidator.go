package cache

import (
	"context"
	"log/slog"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
)

// Invalidation binds a mutation event to the cache namespace it makes
// stale. Key extracts the entity id from the event payload; an empty id
// skips the purge.
type Invalidation struct {
	Event     string
	Namespace string
	Key       func(e events.Event) string
}

// BindInvalidations subscribes a purge handler for each binding. This is
// the only path by which a TTL-less entry refreshes after a write, so it
// runs once at process start. Purge failures are absorbed by the cache
// layer and never reach the emitter.
func BindInvalidations(bus *events.Bus, c *Cache, logger *slog.Logger, bindings ...Invalidation) {
	for _, b := range bindings {
		b := b
		bus.Subscribe(b.Event, "cache-invalidate:"+b.Namespace, func(ctx context.Context, e events.Event) error {
			id := b.Key(e)
			if id == "" {
				logger.Warn("invalidation event without entity id", "event", e.Name, "namespace", b.Namespace)
				return nil
			}
			c.Delete(ctx, b.Namespace, id)
			return nil
		})
	}
}

// UserID extracts the user id from a UserEvent payload.
func UserID(e events.Event) string {
	if p, ok := e.Payload.(events.UserEvent); ok {
		return p.UserID
	}
	return ""
}

// TicketID extracts the ticket id from a TicketEvent payload.
func TicketID(e events.Event) string {
	if p, ok := e.Payload.(events.TicketEvent); ok {
		return p.TicketID
	}
	return ""
}
