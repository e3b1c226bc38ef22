// Package events provides the in-process event bus that decouples the
// mutation paths (users, tickets, preferences) from cache invalidation and
// notification bookkeeping. Events are ephemeral: at-most-once per active
// listener, never persisted.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Domain event names. Payloads are the typed structs below.
const (
	UserUpdate       = "USER_UPDATE"
	UserLogout       = "USER_LOGOUT"
	UserDelete       = "USER_DELETE"
	TicketUpdate     = "TICKET_UPDATE"
	PreferenceUpdate = "NOTIFICATION_PREFERENCE_UPDATE"
	NotificationSent = "NOTIFICATION_SENT"
)

// UserEvent is the payload for USER_UPDATE, USER_LOGOUT, USER_DELETE and
// NOTIFICATION_PREFERENCE_UPDATE.
type UserEvent struct {
	UserID string `json:"user_id"`
}

// TicketEvent is the payload for TICKET_UPDATE.
type TicketEvent struct {
	TicketID string `json:"ticket_id"`
}

// Event is the envelope delivered to handlers.
type Event struct {
	Name    string
	Payload any
}

// Handler processes a delivered event. A non-nil error is logged by the bus
// and never reaches the emitter.
type Handler func(ctx context.Context, e Event) error

type subscription struct {
	id      string
	handler Handler
	once    bool
}

// Bus is a process-wide publish/subscribe registry. Construct one instance
// at the composition root and inject it; there is no package-level state.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]*subscription
	disabled  bool
	logger    *slog.Logger
}

// NewBus creates a bus. A disabled bus accepts every call and does nothing,
// so callers never need to guard against it.
func NewBus(logger *slog.Logger, disabled bool) *Bus {
	return &Bus{
		listeners: make(map[string][]*subscription),
		disabled:  disabled,
		logger:    logger,
	}
}

// Subscribe registers a handler under (event, id). Registering the same id
// for the same event again is a no-op, which keeps repeated wiring at start
// up from doubling invalidation work.
func (b *Bus) Subscribe(event, id string, h Handler) {
	b.subscribe(event, id, h, false)
}

// SubscribeOnce registers a handler that deregisters itself after its first
// delivery.
func (b *Bus) SubscribeOnce(event, id string, h Handler) {
	b.subscribe(event, id, h, true)
}

func (b *Bus) subscribe(event, id string, h Handler, once bool) {
	if b.disabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.listeners[event] {
		if sub.id == id {
			return
		}
	}
	b.listeners[event] = append(b.listeners[event], &subscription{id: id, handler: h, once: once})
}

// Unsubscribe removes the handler registered under (event, id). Unknown ids
// are ignored.
func (b *Bus) Unsubscribe(event, id string) {
	if b.disabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[event]
	for i, sub := range subs {
		if sub.id == id {
			b.listeners[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to all current listeners and returns immediately.
// Listeners run concurrently; their errors are logged, not propagated. A
// write path that emits and responds before listeners finish leaves a short
// staleness window, which is the documented coherence model.
func (b *Bus) Emit(ctx context.Context, event string, payload any) {
	subs := b.snapshot(event)
	if len(subs) == 0 {
		return
	}
	go b.deliver(context.WithoutCancel(ctx), event, payload, subs)
}

// EmitAndWait delivers the event and blocks until every listener has
// finished. Use it where the caller needs invalidation to have happened,
// e.g. in tests asserting "eventually invalidated".
func (b *Bus) EmitAndWait(ctx context.Context, event string, payload any) {
	b.deliver(ctx, event, payload, b.snapshot(event))
}

func (b *Bus) snapshot(event string) []*subscription {
	if b.disabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[event]
	out := make([]*subscription, len(subs))
	copy(out, subs)

	remaining := subs[:0:0]
	for _, sub := range subs {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	if len(remaining) != len(subs) {
		b.listeners[event] = remaining
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, event string, payload any, subs []*subscription) {
	if len(subs) == 0 {
		return
	}
	e := Event{Name: event, Payload: payload}
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *subscription) {
			defer wg.Done()
			if err := sub.handler(ctx, e); err != nil {
				b.logger.Error("event handler failed", "event", event, "listener", sub.id, "error", err)
			}
		}(sub)
	}
	wg.Wait()
}
