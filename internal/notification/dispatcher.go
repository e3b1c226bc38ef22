package notification

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total notification dispatch outcomes.",
	}, []string{"outcome"})

	channelDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_channel_deliveries_total",
		Help: "Total channel delivery attempts by channel and status.",
	}, []string{"channel", "status"})
)

// Dispatcher orchestrates sending one notification: preference gate,
// persistence, concurrent channel fan-out, completion event.
type Dispatcher struct {
	prefs          *preference.Store
	repo           Repository
	bus            *events.Bus
	adapters       Adapters
	logger         *slog.Logger
	channelTimeout time.Duration
}

func NewDispatcher(prefs *preference.Store, repo Repository, bus *events.Bus, adapters Adapters, logger *slog.Logger, channelTimeout time.Duration) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 10 * time.Second
	}
	return &Dispatcher{
		prefs:          prefs,
		repo:           repo,
		bus:            bus,
		adapters:       adapters,
		logger:         logger,
		channelTimeout: channelTimeout,
	}
}

// SendToUser sends a notification to one user. A disabled category is a
// normal, silent suppression: the call returns (nil, nil), persists nothing
// and touches no channel adapter. Per-channel delivery failures are logged
// and never fail the call; errors before the record is persisted do.
func (d *Dispatcher) SendToUser(ctx context.Context, req *SendRequest) (*Notification, error) {
	if req == nil || req.UserID == "" {
		return nil, ErrMissingUser
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", preference.ErrUnknownCategory, req.Category)
	}

	pref, err := d.prefs.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load preference for user %s: %w", req.UserID, err)
	}
	if pref == nil || !pref.Enabled(req.Category) {
		dispatchTotal.WithLabelValues("suppressed").Inc()
		d.logger.Debug("notification suppressed by preference", "user_id", req.UserID, "category", req.Category)
		return nil, nil
	}

	n := d.build(req, pref)
	if err := d.repo.Create(ctx, n); err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	d.fanOut(ctx, n)

	if err := d.repo.MarkSent(ctx, n.ID); err != nil {
		d.logger.Error("mark notification sent failed", "notification_id", n.ID, "error", err)
	} else {
		n.Sent = true
	}

	d.bus.Emit(ctx, events.NotificationSent, SentEvent{UserID: n.UserID, Notification: n})
	dispatchTotal.WithLabelValues("sent").Inc()
	return n, nil
}

// build assembles the record, applying catalog defaults for fields the
// request omits. DeliveryChannels is a copy of the preference's list so
// later preference changes cannot rewrite history.
func (d *Dispatcher) build(req *SendRequest, pref *preference.NotificationPreference) *Notification {
	entry, _ := Lookup(req.Category, req.Type)

	title := req.Title
	if title == "" {
		title = entry.Title
	}
	message := req.Message
	if message == "" {
		message = renderText(entry.Message, req.Data)
	}
	code := req.Code
	if code == "" {
		code = entry.Code
	}
	priority := req.Priority
	if priority == "" {
		priority = entry.Priority
	}
	if priority == "" {
		priority = PriorityNormal
	}

	return &Notification{
		UserID:           req.UserID,
		Source:           req.Source,
		Category:         req.Category,
		Type:             req.Type,
		Title:            title,
		Message:          message,
		ActionCode:       code,
		ActionData:       req.Data,
		URL:              req.URL,
		DeliveryChannels: slices.Clone(pref.Channels),
		Priority:         priority,
	}
}

// fanOut attempts delivery on every snapshot channel concurrently and
// returns once all attempts settle. Each channel gets its own timeout so a
// slow adapter cannot stall the rest, and each failure is recovered locally.
func (d *Dispatcher) fanOut(ctx context.Context, n *Notification) {
	var wg sync.WaitGroup
	for _, ch := range n.DeliveryChannels {
		send := d.sender(ch, n)
		if send == nil {
			d.logger.Warn("no adapter configured for channel", "channel", ch, "notification_id", n.ID)
			channelDeliveries.WithLabelValues(string(ch), "skipped").Inc()
			continue
		}
		wg.Add(1)
		go func(ch preference.Channel) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
			defer cancel()
			if err := send(cctx); err != nil {
				channelDeliveries.WithLabelValues(string(ch), "failed").Inc()
				d.logger.Error("channel delivery failed", "channel", ch, "notification_id", n.ID, "user_id", n.UserID, "error", err)
				return
			}
			channelDeliveries.WithLabelValues(string(ch), "sent").Inc()
		}(ch)
	}
	wg.Wait()
}

func (d *Dispatcher) sender(ch preference.Channel, n *Notification) func(context.Context) error {
	switch ch {
	case preference.ChannelPush:
		if d.adapters.Push == nil {
			return nil
		}
		return func(ctx context.Context) error {
			return d.adapters.Push.Send(ctx, n.UserID, n.Title, n.Message, n.URL, n)
		}
	case preference.ChannelEmail:
		if d.adapters.Email == nil {
			return nil
		}
		return func(ctx context.Context) error {
			return d.adapters.Email.Send(ctx, n.UserID, n.Title, n.Message, n)
		}
	case preference.ChannelSMS:
		if d.adapters.SMS == nil {
			return nil
		}
		return func(ctx context.Context) error {
			return d.adapters.SMS.Send(ctx, n.UserID, n.Message)
		}
	}
	return nil
}
