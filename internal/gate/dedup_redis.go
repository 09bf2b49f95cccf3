package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupStore shares the duplicate window across instances behind the
// same Redis. SET NX PX is the atomic check-and-set: the first writer wins,
// every other caller inside the window sees a duplicate. Keys expire on their
// own, so no janitor is needed.
type RedisDedupStore struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
}

type RedisDedupOption func(*RedisDedupStore)

func WithDedupPrefix(prefix string) RedisDedupOption {
	return func(s *RedisDedupStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisDedupStore(rdb *redis.Client, window time.Duration, opts ...RedisDedupOption) *RedisDedupStore {
	if window <= 0 {
		window = 10 * time.Second
	}
	s := &RedisDedupStore{
		rdb:    rdb,
		prefix: "gate:dedup",
		window: window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seen implements DedupStore.
func (s *RedisDedupStore) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.prefix+":"+key, 1, s.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}
