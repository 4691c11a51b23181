package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClock allows controlling time in tests
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

var _ Cache = (*Memory)(nil)
var _ Cache = (*NATS)(nil)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "1", time.Hour))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

// Test Case: Expiry
// Given: An entry stored with a 25h TTL
// When: The clock moves to just before and then to the deadline
// Then: It is present before and gone at the deadline
func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &mockClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryWithClock(clock.Now)

	require.NoError(t, c.Set(ctx, "schedule-reminder:s1:1:u1", "1", 25*time.Hour))

	clock.Advance(25*time.Hour - time.Second)
	_, ok, _ := c.Get(ctx, "schedule-reminder:s1:1:u1")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = c.Get(ctx, "schedule-reminder:s1:1:u1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_SetOverwritesAndExtends(t *testing.T) {
	ctx := context.Background()
	clock := &mockClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryWithClock(clock.Now)

	require.NoError(t, c.Set(ctx, "k", "a", time.Hour))
	clock.Advance(30 * time.Minute)
	require.NoError(t, c.Set(ctx, "k", "b", time.Hour))
	clock.Advance(45 * time.Minute)

	v, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestMemory_Purge(t *testing.T) {
	ctx := context.Background()
	clock := &mockClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryWithClock(clock.Now)

	require.NoError(t, c.Set(ctx, "short", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "long", "1", time.Hour))
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestKVKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"schedule-reminder:s1:1700000000000:u1", "schedule-reminder.s1.1700000000000.u1"},
		{"schedule-reminder:8f14e45f-ceea-4c9b:1:u_2", "schedule-reminder.8f14e45f-ceea-4c9b.1.u_2"},
		{"a b*c>d", "a_b_c_d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KVKey(tt.in))
	}
}
