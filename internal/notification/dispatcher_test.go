package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// prefRepo is an in-memory preference.Repository.
type prefRepo struct {
	docs map[string]*preference.NotificationPreference
}

func newPrefRepo() *prefRepo {
	return &prefRepo{docs: make(map[string]*preference.NotificationPreference)}
}

func (r *prefRepo) Find(ctx context.Context, userID string) (*preference.NotificationPreference, error) {
	p, ok := r.docs[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Channels = append([]preference.Channel(nil), p.Channels...)
	return &cp, nil
}

func (r *prefRepo) Create(ctx context.Context, p *preference.NotificationPreference) error {
	if _, exists := r.docs[p.UserID]; !exists {
		cp := *p
		r.docs[p.UserID] = &cp
	}
	return nil
}

func (r *prefRepo) SaveCategories(ctx context.Context, userID string, categories map[preference.Category]bool) error {
	doc := r.docs[userID]
	for k, v := range categories {
		doc.Categories[k] = v
	}
	return nil
}

func (r *prefRepo) SaveChannels(ctx context.Context, userID string, channels []preference.Channel) error {
	r.docs[userID].Channels = append([]preference.Channel(nil), channels...)
	return nil
}

// notifRepo is an in-memory notification Repository.
type notifRepo struct {
	mu        sync.Mutex
	created   []*Notification
	createErr error
}

func (r *notifRepo) Create(ctx context.Context, n *Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	n.ID = "n-test"
	n.CreatedAt = time.Now()
	r.mu.Lock()
	r.created = append(r.created, n)
	r.mu.Unlock()
	return nil
}

func (r *notifRepo) GetByID(ctx context.Context, id string) (*Notification, error) { return nil, nil }
func (r *notifRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	return nil, nil
}
func (r *notifRepo) MarkRead(ctx context.Context, id string) error { return nil }
func (r *notifRepo) MarkSent(ctx context.Context, id string) error { return nil }

// recording adapters with injectable failures.
type pushMock struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *pushMock) Send(ctx context.Context, userID, title, message, url string, n *Notification) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.err
}

type emailMock struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *emailMock) Send(ctx context.Context, userID, subject, message string, n *Notification) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.err
}

type smsMock struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *smsMock) Send(ctx context.Context, userID, message string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.err
}

type fixture struct {
	dispatcher *Dispatcher
	prefs      *preference.Store
	repo       *notifRepo
	bus        *events.Bus
	push       *pushMock
	email      *emailMock
	sms        *smsMock
}

func newFixture(t *testing.T, cacheEnabled bool) *fixture {
	t.Helper()
	logger := testLogger()
	c := cache.New(cache.NewMemoryClient(), "test:", cacheEnabled, logger)
	prefs := preference.NewStore(newPrefRepo(), c, logger, 0)
	bus := events.NewBus(logger, false)
	repo := &notifRepo{}
	push, email, sms := &pushMock{}, &emailMock{}, &smsMock{}
	d := NewDispatcher(prefs, repo, bus, Adapters{Push: push, Email: email, SMS: sms}, logger, time.Second)
	return &fixture{dispatcher: d, prefs: prefs, repo: repo, bus: bus, push: push, email: email, sms: sms}
}

func runWithCacheModes(t *testing.T, fn func(t *testing.T, cacheEnabled bool)) {
	t.Run("cache on", func(t *testing.T) { fn(t, true) })
	t.Run("cache off", func(t *testing.T) { fn(t, false) })
}

func supportRequest(userID string) *SendRequest {
	return &SendRequest{
		UserID:   userID,
		Source:   "test",
		Category: preference.CategorySupport,
		Type:     "TICKET_CREATED",
		Data:     map[string]string{"TicketID": "t-1"},
	}
}

func TestSendToUserRequiresUser(t *testing.T) {
	f := newFixture(t, true)

	if _, err := f.dispatcher.SendToUser(context.Background(), &SendRequest{Category: preference.CategorySupport}); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("want ErrMissingUser, got %v", err)
	}
	if _, err := f.dispatcher.SendToUser(context.Background(), nil); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("want ErrMissingUser for nil request, got %v", err)
	}
}

func TestSendToUserRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.dispatcher.SendToUser(context.Background(), &SendRequest{UserID: "u1", Category: "BOGUS"})
	if !errors.Is(err, preference.ErrUnknownCategory) {
		t.Fatalf("want ErrUnknownCategory, got %v", err)
	}
}

func TestSendToUserDeliversOnDefaultPreference(t *testing.T) {
	runWithCacheModes(t, func(t *testing.T, cacheEnabled bool) {
		f := newFixture(t, cacheEnabled)

		n, err := f.dispatcher.SendToUser(context.Background(), supportRequest("u1"))
		if err != nil {
			t.Fatal(err)
		}
		if n == nil {
			t.Fatal("expected a persisted notification")
		}
		if len(f.repo.created) != 1 {
			t.Fatalf("expected 1 persisted record, got %d", len(f.repo.created))
		}
		// Default preference delivers on push only.
		if f.push.calls != 1 {
			t.Fatalf("push calls = %d, want 1", f.push.calls)
		}
		if f.email.calls != 0 || f.sms.calls != 0 {
			t.Fatal("channels outside the preference must not be called")
		}
	})
}

func TestGateSuppressesDisabledCategory(t *testing.T) {
	runWithCacheModes(t, func(t *testing.T, cacheEnabled bool) {
		f := newFixture(t, cacheEnabled)
		ctx := context.Background()

		if _, err := f.prefs.DisableCategory(ctx, "u1", preference.CategorySupport); err != nil {
			t.Fatal(err)
		}

		n, err := f.dispatcher.SendToUser(ctx, supportRequest("u1"))
		if err != nil {
			t.Fatalf("suppression must be silent, got error %v", err)
		}
		if n != nil {
			t.Fatal("suppressed dispatch must return nil")
		}
		if len(f.repo.created) != 0 {
			t.Fatal("suppressed dispatch must not persist a record")
		}
		if f.push.calls+f.email.calls+f.sms.calls != 0 {
			t.Fatal("suppressed dispatch must not touch any adapter")
		}
	})
}

func TestDeliveryChannelsAreSnapshot(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.prefs.UpdateChannels(ctx, "u1", []preference.Channel{preference.ChannelPush, preference.ChannelEmail}); err != nil {
		t.Fatal(err)
	}

	n, err := f.dispatcher.SendToUser(ctx, supportRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.prefs.UpdateChannels(ctx, "u1", []preference.Channel{preference.ChannelSMS}); err != nil {
		t.Fatal(err)
	}

	want := []preference.Channel{preference.ChannelPush, preference.ChannelEmail}
	if len(n.DeliveryChannels) != len(want) || n.DeliveryChannels[0] != want[0] || n.DeliveryChannels[1] != want[1] {
		t.Fatalf("snapshot channels = %v, want %v", n.DeliveryChannels, want)
	}
}

func TestChannelFailureIsIsolated(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.prefs.UpdateChannels(ctx, "u1", []preference.Channel{
		preference.ChannelPush, preference.ChannelEmail, preference.ChannelSMS,
	}); err != nil {
		t.Fatal(err)
	}
	f.email.err = errors.New("smtp rejected")

	n, err := f.dispatcher.SendToUser(ctx, supportRequest("u1"))
	if err != nil {
		t.Fatalf("one failing channel must not fail the dispatch: %v", err)
	}
	if n == nil {
		t.Fatal("dispatch must still return the persisted notification")
	}
	if f.push.calls != 1 || f.sms.calls != 1 {
		t.Fatalf("surviving channels must be attempted: push=%d sms=%d", f.push.calls, f.sms.calls)
	}
}

func TestMissingAdapterIsSkipped(t *testing.T) {
	logger := testLogger()
	c := cache.New(cache.NewMemoryClient(), "test:", true, logger)
	prefs := preference.NewStore(newPrefRepo(), c, logger, 0)
	repo := &notifRepo{}
	bus := events.NewBus(logger, false)
	// No adapters configured at all.
	d := NewDispatcher(prefs, repo, bus, Adapters{}, logger, time.Second)

	n, err := d.SendToUser(context.Background(), supportRequest("u1"))
	if err != nil {
		t.Fatalf("missing adapters must not fail the dispatch: %v", err)
	}
	if n == nil {
		t.Fatal("notification must still be persisted")
	}
}

func TestCatalogDefaultsApplied(t *testing.T) {
	f := newFixture(t, true)

	n, err := f.dispatcher.SendToUser(context.Background(), supportRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if n.Title == "" {
		t.Fatal("title must default from the catalog")
	}
	if n.Message == "" || n.Message == "Your ticket {{.TicketID}} has been created. We'll get back to you shortly." {
		t.Fatalf("message must be rendered with request data, got %q", n.Message)
	}
	if n.Priority != PriorityNormal {
		t.Fatalf("priority = %s, want %s", n.Priority, PriorityNormal)
	}
	if n.ActionCode != "OPEN_TICKET" {
		t.Fatalf("action code = %s, want OPEN_TICKET", n.ActionCode)
	}
}

func TestExplicitFieldsWinOverCatalog(t *testing.T) {
	f := newFixture(t, true)

	req := supportRequest("u1")
	req.Title = "Custom title"
	req.Message = "Custom message"
	req.Priority = PriorityHigh
	req.Code = "CUSTOM_CODE"

	n, err := f.dispatcher.SendToUser(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Custom title" || n.Message != "Custom message" || n.Priority != PriorityHigh || n.ActionCode != "CUSTOM_CODE" {
		t.Fatalf("explicit request fields must win, got %+v", n)
	}
}

func TestPersistErrorIsFatal(t *testing.T) {
	f := newFixture(t, true)
	f.repo.createErr = errors.New("insert failed")

	if _, err := f.dispatcher.SendToUser(context.Background(), supportRequest("u1")); err == nil {
		t.Fatal("persistence failure after the gate must surface to the caller")
	}
	if f.push.calls != 0 {
		t.Fatal("no channel may be attempted when persistence fails")
	}
}

func TestSentEventEmittedAfterFanOut(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	received := make(chan SentEvent, 1)
	f.bus.Subscribe(events.NotificationSent, "test-listener", func(ctx context.Context, e events.Event) error {
		if sent, ok := e.Payload.(SentEvent); ok {
			received <- sent
		}
		return nil
	})

	n, err := f.dispatcher.SendToUser(ctx, supportRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case sent := <-received:
		if sent.UserID != "u1" || sent.Notification.ID != n.ID {
			t.Fatalf("sent event payload mismatch: %+v", sent)
		}
	case <-time.After(time.Second):
		t.Fatal("NOTIFICATION_SENT event was not delivered")
	}
}
