package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript runs the whole read/reset/increment step server side so
// concurrent instances never interleave on one key.
// KEYS[1] counter hash; ARGV now_ms, window_ms, limit.
// Returns {allowed, count, reset_ms}.
var fixedWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local count = redis.call('HGET', KEYS[1], 'count')
local reset = redis.call('HGET', KEYS[1], 'reset')
if (not count) or (not reset) or now > tonumber(reset) then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, 1, reset}
end
count = tonumber(count)
reset = tonumber(reset)
if count >= limit then
  return {0, count, reset}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, count, reset}
`)

// RedisStore keeps counters in Redis with a per-key expiry of one window.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore wraps a redis client. Keys are stored under prefix (default "ratelimit").
func NewRedisStore(client redis.Scripter, prefix string) *RedisStore {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	if s == nil || s.client == nil {
		return Decision{}, fmt.Errorf("ratelimit: redis client not configured")
	}
	vals, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + ":" + key},
		now.UnixMilli(), window.Milliseconds(), limit,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected redis reply length %d", len(vals))
	}
	return Decision{
		Allowed: vals[0] == 1,
		Count:   int(vals[1]),
		Limit:   limit,
		ResetAt: time.UnixMilli(vals[2]),
	}, nil
}
