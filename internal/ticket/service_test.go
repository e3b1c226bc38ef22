package ticket

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type memoryRepo struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
	gets    int
	nextID  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tickets: make(map[string]*Ticket)}
}

func (r *memoryRepo) Create(ctx context.Context, t *Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = "t-" + string(rune('0'+r.nextID))
	if t.Status == "" {
		t.Status = StatusOpen
	}
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepo) Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Subject != nil {
		t.Subject = *in.Subject
	}
	if in.Body != nil {
		t.Body = *in.Body
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type notifierMock struct {
	mu       sync.Mutex
	requests []*notification.SendRequest
}

func (m *notifierMock) SendToUser(ctx context.Context, req *notification.SendRequest) (*notification.Notification, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return &notification.Notification{ID: "n-1"}, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *events.Bus, *notifierMock) {
	t.Helper()
	logger := testLogger()
	repo := newMemoryRepo()
	c := cache.New(cache.NewMemoryClient(), "test:", true, logger)
	bus := events.NewBus(logger, false)
	notifier := &notifierMock{}
	svc := NewService(repo, c, bus, notifier, logger, 0)
	svc.Bind(bus)
	return svc, repo, bus, notifier
}

func TestCreateNotifiesOwner(t *testing.T) {
	svc, _, _, notifier := newTestService(t)

	tk, err := svc.Create(context.Background(), CreateInput{UserID: "u1", Subject: "printer on fire"})
	if err != nil {
		t.Fatal(err)
	}
	if tk.Status != StatusOpen {
		t.Fatalf("new ticket status = %s, want OPEN", tk.Status)
	}
	if len(notifier.requests) != 1 || notifier.requests[0].Type != "TICKET_CREATED" {
		t.Fatalf("expected one TICKET_CREATED notification, got %+v", notifier.requests)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), CreateInput{UserID: "u1"}); err == nil {
		t.Fatal("subject is required")
	}
	if _, err := svc.Create(context.Background(), CreateInput{Subject: "no user"}); err == nil {
		t.Fatal("user_id is required")
	}
}

func TestGetCachesDetailRead(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	tk, err := svc.Create(ctx, CreateInput{UserID: "u1", Subject: "s"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	getsAfterFirst := repo.gets
	if _, err := svc.Get(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if repo.gets != getsAfterFirst {
		t.Fatal("second read should be served from cache")
	}
}

// Mutation events eventually invalidate the cached detail: once the
// emission completes, the next read reflects the new value.
func TestMutationEventInvalidatesCachedRead(t *testing.T) {
	svc, _, bus, _ := newTestService(t)
	ctx := context.Background()

	tk, err := svc.Create(ctx, CreateInput{UserID: "u1", Subject: "before"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}

	subject := "after"
	if _, err := svc.Update(ctx, tk.ID, UpdateInput{Subject: &subject}); err != nil {
		t.Fatal(err)
	}
	// The service emits detached; force completion the way a caller that
	// needs coherence would.
	bus.EmitAndWait(ctx, events.TicketUpdate, events.TicketEvent{TicketID: tk.ID})

	got, err := svc.Get(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != "after" {
		t.Fatalf("read after invalidation = %q, want %q", got.Subject, "after")
	}
}

func TestClosingTicketNotifies(t *testing.T) {
	svc, _, _, notifier := newTestService(t)
	ctx := context.Background()

	tk, err := svc.Create(ctx, CreateInput{UserID: "u1", Subject: "s"})
	if err != nil {
		t.Fatal(err)
	}

	closed := StatusClosed
	if _, err := svc.Update(ctx, tk.ID, UpdateInput{Status: &closed}); err != nil {
		t.Fatal(err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	var types []string
	for _, req := range notifier.requests {
		types = append(types, req.Type)
	}
	if len(types) != 2 || types[1] != "TICKET_CLOSED" {
		t.Fatalf("notification types = %v, want [TICKET_CREATED TICKET_CLOSED]", types)
	}
}
