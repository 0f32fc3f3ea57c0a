// Package respcache provides the short-TTL request-level response cache
// shared by provider clients. It is purely an optimization — staleness is
// bounded by the TTL, not by business freshness requirements.
package respcache

import (
	"context"
	"sync"
	"time"
)

// Cache stores raw response bodies keyed by (endpoint, parameter-set).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache scoped to the client instance.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached value when present and unexpired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the given TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic sweep keeps the map bounded between requests.
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}

	m.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
}

var _ Cache = (*Memory)(nil)
