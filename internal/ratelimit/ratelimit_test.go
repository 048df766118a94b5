package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// exerciseFixedWindow runs the same quota scenario against any Store.
func exerciseFixedWindow(t *testing.T, store Store) {
	t.Helper()
	clock := newFakeClock()
	limiter := NewFixedWindow(store, 3, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		dec, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d should be allowed", i)
		assert.Equal(t, i, dec.Count)
	}

	for i := 0; i < 2; i++ {
		dec, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, dec.Allowed)
		assert.Equal(t, 3, dec.Count, "denied requests must not increment")
		assert.Equal(t, time.Minute, dec.RetryAfter(clock.Now()))
	}

	// Exactly at the boundary the window is still closed.
	clock.Advance(time.Minute)
	dec, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	clock.Advance(time.Millisecond)
	for i := 1; i <= 3; i++ {
		dec, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "fresh window request %d should be allowed", i)
	}
	dec, err = limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	other, err := limiter.Allow(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "other identities keep their own quota")
	assert.Equal(t, 1, other.Count)
}

func TestFixedWindow_MemoryStore(t *testing.T) {
	exerciseFixedWindow(t, NewMemoryStore())
}

func TestFixedWindow_ClampsConfiguration(t *testing.T) {
	limiter := NewFixedWindow(NewMemoryStore(), 0, 0)
	assert.Equal(t, 1, limiter.Limit())
	assert.Equal(t, time.Second, limiter.Window())
}

func TestFixedWindow_PrefixSeparatesScopes(t *testing.T) {
	store := NewMemoryStore()
	clock := newFakeClock()
	leads := NewFixedWindow(store, 1, time.Minute, WithPrefix("leads"), WithClock(clock.Now))
	checkout := NewFixedWindow(store, 1, time.Minute, WithPrefix("checkout"), WithClock(clock.Now))
	ctx := context.Background()

	dec, _ := leads.Allow(ctx, "10.0.0.1")
	assert.True(t, dec.Allowed)
	dec, _ = checkout.Allow(ctx, "10.0.0.1")
	assert.True(t, dec.Allowed)
	dec, _ = leads.Allow(ctx, "10.0.0.1")
	assert.False(t, dec.Allowed)
	assert.Equal(t, 2, store.Len())
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, int, time.Duration, time.Time) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func TestFixedWindow_FailsOpen(t *testing.T) {
	limiter := NewFixedWindow(brokenStore{}, 1, time.Minute)
	dec, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, dec.Allowed)
}

func TestFixedWindow_NilIsPermissive(t *testing.T) {
	var limiter *FixedWindow
	dec, err := limiter.Allow(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	limiter := NewFixedWindow(NewMemoryStore(), 5, time.Minute)
	keys := []string{"192.0.2.1", "192.0.2.2"}

	var wg sync.WaitGroup
	results := make([][]bool, len(keys))
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			for n := 0; n < 5; n++ {
				dec, _ := limiter.Allow(context.Background(), key)
				results[i] = append(results[i], dec.Allowed)
			}
		}(i, key)
	}
	wg.Wait()

	for i := range keys {
		for n, allowed := range results[i] {
			assert.True(t, allowed, "key %s request %d", keys[i], n)
		}
	}
}

func TestMemoryStore_ConcurrentSameKeyNeverExceedsLimit(t *testing.T) {
	limiter := NewFixedWindow(NewMemoryStore(), 10, time.Minute)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, _ := limiter.Allow(context.Background(), "203.0.113.9")
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	_, _ = store.Hit(context.Background(), "a", 1, time.Second, now)
	_, _ = store.Hit(context.Background(), "b", 1, time.Hour, now)

	removed := store.Sweep(now.Add(2 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestKeyFromRequest(t *testing.T) {
	tests := []struct {
		name string
		xff  string
		want string
	}{
		{"first forwarded entry", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"single entry trimmed", "  198.51.100.4 ", "198.51.100.4"},
		{"missing header", "", UnknownKey},
		{"empty first entry", " ,10.0.0.1", UnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/leads", nil)
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, KeyFromRequest(req))
		})
	}
}

func TestDecisionRetryAfter(t *testing.T) {
	now := time.Now()
	assert.Zero(t, Decision{Allowed: true, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Zero(t, Decision{Allowed: false, ResetAt: now.Add(-time.Second)}.RetryAfter(now))
	assert.Equal(t, 30*time.Second, Decision{Allowed: false, ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
}
