package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// failingClient simulates a cache backend that is down.
type failingClient struct{}

func (failingClient) HGet(ctx context.Context, key, field string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
func (failingClient) HSet(ctx context.Context, key, field, value string) error {
	return errors.New("connection refused")
}
func (failingClient) HDel(ctx context.Context, key, field string) error {
	return errors.New("connection refused")
}
func (failingClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return errors.New("connection refused")
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryClient(), "test:", true, testLogger())

	want := payload{Name: "alice", Count: 3}
	c.Set(ctx, "user", "u1", want, 0)

	var got payload
	if !c.Get(ctx, "user", "u1", &got) {
		t.Fatal("expected cache hit after set")
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := New(NewMemoryClient(), "test:", true, testLogger())

	var got payload
	if c.Get(context.Background(), "user", "nope", &got) {
		t.Fatal("expected miss for unknown key")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryClient(), "test:", true, testLogger())

	c.Set(ctx, "user", "id1", payload{Name: "user"}, 0)
	c.Set(ctx, "ticket", "id1", payload{Name: "ticket"}, 0)

	var got payload
	if !c.Get(ctx, "user", "id1", &got) || got.Name != "user" {
		t.Fatalf("user namespace returned %+v", got)
	}
	if !c.Get(ctx, "ticket", "id1", &got) || got.Name != "ticket" {
		t.Fatalf("ticket namespace returned %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryClient(), "test:", true, testLogger())

	c.Set(ctx, "user", "u1", payload{Name: "alice"}, 0)
	c.Delete(ctx, "user", "u1")
	c.Delete(ctx, "user", "u1")
	c.Delete(ctx, "user", "never-existed")

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("expected miss after delete")
	}
}

func TestTTLExpiresWholeNamespaceKey(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient()
	c := New(mem, "test:", true, testLogger())

	c.Set(ctx, "user", "u1", payload{Name: "alice"}, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("expected entry to expire")
	}
}

func TestDisabledCacheIsTransparent(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryClient(), "test:", false, testLogger())

	c.Set(ctx, "user", "u1", payload{Name: "alice"}, 0)

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("disabled cache must always miss")
	}
	c.Delete(ctx, "user", "u1")
}

func TestBackendErrorsDegradeToMiss(t *testing.T) {
	ctx := context.Background()
	c := New(failingClient{}, "test:", true, testLogger())

	// None of these may panic or surface an error to the caller.
	c.Set(ctx, "user", "u1", payload{Name: "alice"}, time.Minute)
	c.Delete(ctx, "user", "u1")

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("backend error must report a miss")
	}
}

func TestUnserializableValueIsSkipped(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryClient(), "test:", true, testLogger())

	c.Set(ctx, "user", "u1", func() {}, 0) // functions cannot marshal

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("unserializable value must not be cached")
	}
}

func TestCorruptEntryIsEvicted(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient()
	c := New(mem, "test:", true, testLogger())

	if err := mem.HSet(ctx, "test:user", "u1", "{not json"); err != nil {
		t.Fatal(err)
	}

	var got payload
	if c.Get(ctx, "user", "u1", &got) {
		t.Fatal("corrupt entry must report a miss")
	}
	if _, ok, _ := mem.HGet(ctx, "test:user", "u1"); ok {
		t.Fatal("corrupt entry should have been evicted")
	}
}
