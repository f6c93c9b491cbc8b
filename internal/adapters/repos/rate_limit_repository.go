package repos

import (
	"context"
	"time"

	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/throttled/throttled/v2"
)

const rateLimitKeyPrefix = "checkpoint:ratelimit:"

// RateLimitStore shares GCRA state between replicas through KeyDB.
type RateLimitStore struct {
	client *infrastructure.KeyDBClient
	prefix string
}

var _ throttled.GCRAStoreCtx = (*RateLimitStore)(nil)

func NewRateLimitStore(client *infrastructure.KeyDBClient) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: rateLimitKeyPrefix,
	}
}

func (s *RateLimitStore) GetWithTime(ctx context.Context, key string) (int64, time.Time, error) {
	return s.client.GetInt64(ctx, s.prefix+key)
}

func (s *RateLimitStore) SetIfNotExistsWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return s.client.SetInt64NX(ctx, s.prefix+key, value, ttl)
}

func (s *RateLimitStore) CompareAndSwapWithTTL(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	return s.client.CompareAndSwapInt64(ctx, s.prefix+key, old, new, ttl)
}
