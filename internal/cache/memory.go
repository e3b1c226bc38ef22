package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryClient is an in-process HashClient. It backs tests and local
// development where no Redis is running; semantics match the Redis
// implementation including whole-key TTL.
type MemoryClient struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	expiry map[string]time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		hashes: make(map[string]map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (m *MemoryClient) HGet(ctx context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired(key)
	val, ok := m.hashes[key][field]
	return val, ok, nil
}

func (m *MemoryClient) HSet(ctx context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired(key)
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *MemoryClient) HDel(ctx context.Context, key, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes[key], field)
	return nil
}

func (m *MemoryClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry[key] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryClient) evictExpired(key string) {
	if deadline, ok := m.expiry[key]; ok && time.Now().After(deadline) {
		delete(m.hashes, key)
		delete(m.expiry, key)
	}
}
