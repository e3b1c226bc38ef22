package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

// Namespace is the cache namespace for ticket detail reads.
const Namespace = "ticket"

// Notifier is the slice of the dispatcher the ticket flow uses.
type Notifier interface {
	SendToUser(ctx context.Context, req *notification.SendRequest) (*notification.Notification, error)
}

// Service wraps the repository with the cached detail read and the
// TICKET_UPDATE emission that invalidates it. Ticket lifecycle changes also
// notify the owner through the dispatcher, gated by their preferences.
type Service struct {
	repo     Repository
	cache    *cache.Cache
	bus      *events.Bus
	notifier Notifier
	logger   *slog.Logger
	ttl      time.Duration
}

func NewService(repo Repository, c *cache.Cache, bus *events.Bus, notifier Notifier, logger *slog.Logger, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, bus: bus, notifier: notifier, logger: logger, ttl: ttl}
}

// Bind subscribes the ticket-detail cache invalidation.
func (s *Service) Bind(bus *events.Bus) {
	cache.BindInvalidations(bus, s.cache, s.logger,
		cache.Invalidation{Event: events.TicketUpdate, Namespace: Namespace, Key: cache.TicketID},
	)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Ticket, error) {
	if in.UserID == "" || in.Subject == "" {
		return nil, fmt.Errorf("user_id and subject are required")
	}
	t := &Ticket{UserID: in.UserID, Subject: in.Subject, Body: in.Body}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.notify(ctx, t, "TICKET_CREATED")
	return t, nil
}

// Get is the cached detail read.
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	var cached Ticket
	if s.cache.Get(ctx, Namespace, id, &cached) {
		return &cached, nil
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, Namespace, id, t, s.ttl)
	return t, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error) {
	t, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.bus.Emit(ctx, events.TicketUpdate, events.TicketEvent{TicketID: id})
	if in.Status != nil && *in.Status == StatusClosed {
		s.notify(ctx, t, "TICKET_CLOSED")
	}
	return t, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Ticket, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// notify sends the lifecycle notification; suppression or delivery trouble
// never fails the ticket operation.
func (s *Service) notify(ctx context.Context, t *Ticket, eventType string) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.SendToUser(ctx, &notification.SendRequest{
		UserID:   t.UserID,
		Source:   "ticket-service",
		Category: preference.CategorySupport,
		Type:     eventType,
		Data:     map[string]string{"TicketID": t.ID},
		URL:      "/tickets/" + t.ID,
	})
	if err != nil {
		s.logger.Error("ticket notification failed", "ticket_id", t.ID, "type", eventType, "error", err)
	}
}
