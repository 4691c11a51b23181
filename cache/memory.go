package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Cache. Entries vanish on restart, so reminders sent
// before a restart may be sent again within their window.
type Memory struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	timeNow func() time.Time // Injectable for testing
}

// NewMemory creates an empty in-memory cache with real time
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an in-memory cache with an injectable clock (for testing)
func NewMemoryWithClock(timeNow func() time.Time) *Memory {
	return &Memory{
		items:   make(map[string]memoryItem),
		timeNow: timeNow,
	}
}

// Get returns a live entry. Expired entries are dropped on read.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	if !m.timeNow().Before(item.expiresAt) {
		delete(m.items, key)
		return "", false, nil
	}
	return item.value, true, nil
}

// Set stores value until now+ttl
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memoryItem{value: value, expiresAt: m.timeNow().Add(ttl)}
	return nil
}

// Purge removes expired entries and returns how many were removed
func (m *Memory) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.timeNow()
	removed := 0
	for key, item := range m.items {
		if !now.Before(item.expiresAt) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
