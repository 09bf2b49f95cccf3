package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiterStore is the shared fixed-window counter for multi-instance
// deployments: INCR on a per-key window counter, EXPIRE set by whichever
// instance opens the window. Retry-After falls back to the window length when
// the TTL cannot be read.
type RedisLimiterStore struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
}

type RedisLimiterOption func(*RedisLimiterStore)

func WithLimiterPrefix(prefix string) RedisLimiterOption {
	return func(s *RedisLimiterStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisLimiterStore(rdb *redis.Client, max int, window time.Duration, opts ...RedisLimiterOption) *RedisLimiterStore {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	s := &RedisLimiterStore{
		rdb:    rdb,
		prefix: "gate:ratelimit",
		max:    max,
		window: window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow implements LimiterStore.
func (s *RedisLimiterStore) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := s.prefix + ":" + key

	count, err := s.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, redisKey, s.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count > int64(s.max) {
		retry := s.window
		if ttl, err := s.rdb.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		return Decision{RetryAfter: retry}, nil
	}

	return Decision{Allowed: true}, nil
}
