package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the counter and starts the window on the first hit.
// A key left without expiry (for example after a failed PEXPIRE) is repaired.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if current == 1 or ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisStore keeps counters in redis so that every relay process sharing the
// same redis sees the same budget per IP.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := hitScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("hit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("hit %s: unexpected reply length %d", key, len(vals))
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}
