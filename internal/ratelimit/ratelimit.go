// Package ratelimit implements fixed-window request quotas keyed by caller
// identity. The window policy lives in FixedWindow; the counter state lives in
// a Store so it can be process-local (MemoryStore) or shared across instances
// (RedisStore, DynamoStore).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// UnknownKey is the identity used when no forwarded-for header is present.
const UnknownKey = "unknown"

// ErrStoreUnavailable wraps counter store failures.
var ErrStoreUnavailable = errors.New("ratelimit: store unavailable")

// Decision is the outcome of a single quota check.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

// RetryAfter reports how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() {
		return 0
	}
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Limiter decides whether one more request from key fits in its quota.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Store applies one fixed-window step for key atomically:
//   - no counter, or now past its reset boundary: start a new window with count 1
//   - count already at limit: deny without incrementing
//   - otherwise: increment and allow
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// FixedWindow enforces limit requests per window for each key.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// Option customizes a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithPrefix namespaces keys so several limiters can share one store.
func WithPrefix(prefix string) Option {
	return func(f *FixedWindow) { f.prefix = strings.Trim(prefix, ":") }
}

// NewFixedWindow builds a limiter. limit is clamped to at least 1 and window to
// at least one second.
func NewFixedWindow(store Store, limit int, window time.Duration, opts ...Option) *FixedWindow {
	if limit < 1 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	f := &FixedWindow{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Limit returns the configured ceiling.
func (f *FixedWindow) Limit() int { return f.limit }

// Window returns the configured window length.
func (f *FixedWindow) Window() time.Duration { return f.window }

// Allow consumes one unit of quota for key. When the store fails the request
// is allowed and the error is returned so the caller can log it.
func (f *FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	if f == nil || f.store == nil {
		return Decision{Allowed: true}, nil
	}
	if key == "" {
		key = UnknownKey
	}
	if f.prefix != "" {
		key = f.prefix + ":" + key
	}
	dec, err := f.store.Hit(ctx, key, f.limit, f.window, f.now())
	if err != nil {
		return Decision{Allowed: true, Limit: f.limit}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return dec, nil
}

// KeyFromRequest derives the caller identity from the first X-Forwarded-For
// entry. The header is client controlled, so the identity is best effort only.
func KeyFromRequest(r *http.Request) string {
	if r == nil {
		return UnknownKey
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return UnknownKey
	}
	first, _, _ := strings.Cut(xff, ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}
	return UnknownKey
}
