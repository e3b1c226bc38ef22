package preference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
)

// Namespace is the cache namespace for preference documents.
const Namespace = "notification_preference"

// Store is the cache-through preference store. Get never reports "not
// found": a user without a document receives the lazily created default.
type Store struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
	ttl    time.Duration
}

func NewStore(repo Repository, c *cache.Cache, logger *slog.Logger, ttl time.Duration) *Store {
	return &Store{repo: repo, cache: c, logger: logger, ttl: ttl}
}

// Bind subscribes the cache purge handlers. Logout, delete and preference
// mutation all bound staleness by evicting the user's entry; the next read
// repopulates from the document store.
func (s *Store) Bind(bus *events.Bus) {
	purge := func(ctx context.Context, e events.Event) error {
		if userID := cache.UserID(e); userID != "" {
			s.cache.Delete(ctx, Namespace, userID)
		}
		return nil
	}
	bus.Subscribe(events.UserLogout, "preference-purge", purge)
	bus.Subscribe(events.UserDelete, "preference-purge", purge)
	bus.Subscribe(events.PreferenceUpdate, "preference-purge", purge)
}

// Get returns the user's preference, reading through the cache. A missing
// document is created with defaults, so any syntactically valid user id
// resolves to a preference.
func (s *Store) Get(ctx context.Context, userID string) (*NotificationPreference, error) {
	var cached NotificationPreference
	if s.cache.Get(ctx, Namespace, userID, &cached) {
		return &cached, nil
	}

	p, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = Default(userID)
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, err
		}
		s.logger.Info("created default notification preference", "user_id", userID)
	}

	s.cache.Set(ctx, Namespace, userID, p, s.ttl)
	return p, nil
}

// UpdateCategories merges the given toggles into the user's preference.
// Unknown categories are rejected before anything is persisted.
func (s *Store) UpdateCategories(ctx context.Context, userID string, categories map[Category]bool) (*NotificationPreference, error) {
	if len(categories) == 0 {
		return s.Get(ctx, userID)
	}
	for c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveCategories(ctx, userID, categories); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

// UpdateChannels replaces the user's delivery channel list. Unknown
// channels are rejected before anything is persisted.
func (s *Store) UpdateChannels(ctx context.Context, userID string, channels []Channel) (*NotificationPreference, error) {
	for _, c := range channels {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, c)
		}
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveChannels(ctx, userID, channels); err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID)
}

// EnableCategory turns a single category on.
func (s *Store) EnableCategory(ctx context.Context, userID string, c Category) (*NotificationPreference, error) {
	return s.UpdateCategories(ctx, userID, map[Category]bool{c: true})
}

// DisableCategory turns a single category off.
func (s *Store) DisableCategory(ctx context.Context, userID string, c Category) (*NotificationPreference, error) {
	return s.UpdateCategories(ctx, userID, map[Category]bool{c: false})
}

// refresh re-reads the authoritative document after a write and re-caches
// it, so the cache reflects any server-side merge rather than a locally
// mutated copy.
func (s *Store) refresh(ctx context.Context, userID string) (*NotificationPreference, error) {
	p, err := s.repo.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("preference for user %s vanished after update", userID)
	}
	s.cache.Set(ctx, Namespace, userID, p, s.ttl)
	return p, nil
}
