// Package cache provides a small TTL cache for responses of third-party APIs
// used by the fun commands. Two backends exist: an in-process map and Redis.
// Cache failures are never fatal; a broken backend behaves like a miss.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 10 * time.Minute

// Cache stores opaque byte values by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type item struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache. Expired items are dropped lazily on read
// and swept when the map grows past MaxItems.
type Memory struct {
	MaxItems int
	Now      func() time.Time

	mu    sync.Mutex
	items map[string]item
}

// NewMemory returns an empty in-process cache.
func NewMemory(maxItems int) *Memory {
	if maxItems <= 0 {
		maxItems = 1024
	}
	return &Memory{MaxItems: maxItems, Now: time.Now, items: make(map[string]item)}
}

func (m *Memory) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(it.expires) {
		delete(m.items, key)
		return nil, false
	}
	return it.value, true
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]item)
	}
	now := m.now()
	if len(m.items) >= m.MaxItems {
		m.sweep(now)
	}
	m.items[key] = item{value: value, expires: now.Add(ttl)}
}

// Len returns the number of stored items, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// sweep drops expired items; if none expired it drops the one closest to
// expiry. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, it := range m.items {
		if !now.Before(it.expires) {
			delete(m.items, k)
			continue
		}
		if oldestKey == "" || it.expires.Before(oldest) {
			oldestKey, oldest = k, it.expires
		}
	}
	if len(m.items) >= m.MaxItems && oldestKey != "" {
		delete(m.items, oldestKey)
	}
}
