package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/cache"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/events"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification/adapters"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/bcryptutil"
)

// Namespace is the cache namespace for user detail reads.
const Namespace = "user"

// Service wraps the repository with the cached detail read and the domain
// event emission that drives cache invalidation. Events are emitted
// fire-and-forget: a caller can observe a successful write before the
// invalidation listener runs, which is the accepted staleness window.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	bus    *events.Bus
	hasher bcryptutil.Hasher
	logger *slog.Logger
	ttl    time.Duration
}

func NewService(repo Repository, c *cache.Cache, bus *events.Bus, hasher bcryptutil.Hasher, logger *slog.Logger, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, bus: bus, hasher: hasher, logger: logger, ttl: ttl}
}

// Bind subscribes the user-detail cache invalidation.
func (s *Service) Bind(bus *events.Bus) {
	cache.BindInvalidations(bus, s.cache, s.logger,
		cache.Invalidation{Event: events.UserUpdate, Namespace: Namespace, Key: cache.UserID},
		cache.Invalidation{Event: events.UserDelete, Namespace: Namespace, Key: cache.UserID},
	)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Name: in.Name, Email: in.Email, Phone: in.Phone, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID)
	return u, nil
}

// Get is the cached detail read.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	var cached User
	if s.cache.Get(ctx, Namespace, id, &cached) {
		return &cached, nil
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, Namespace, id, u, s.ttl)
	return u, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	u, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.bus.Emit(ctx, events.UserUpdate, events.UserEvent{UserID: id})
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bus.Emit(ctx, events.UserDelete, events.UserEvent{UserID: id})
	return nil
}

// Logout records a session end. Session state itself lives outside this
// service; the event is what purges the user's cached preference.
func (s *Service) Logout(ctx context.Context, id string) {
	s.bus.Emit(ctx, events.UserLogout, events.UserEvent{UserID: id})
}

func (s *Service) List(ctx context.Context, limit int) ([]*User, error) {
	return s.repo.List(ctx, limit)
}

// ContactForUser resolves delivery addressing for the channel adapters.
func (s *Service) ContactForUser(ctx context.Context, userID string) (adapters.Contact, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return adapters.Contact{}, err
	}
	return adapters.Contact{Email: u.Email, Phone: u.Phone}, nil
}
