package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/checkpoint/internal/infrastructure"
	"github.com/architeacher/checkpoint/internal/ports"
	"github.com/redis/go-redis/v9"
)

const (
	lockSuffix = ":lock"
	lockValue  = "processing"
)

// IdempotencyRepository stores replayable responses of check-in and checkout requests in KeyDB.
type IdempotencyRepository struct {
	client *infrastructure.KeyDBClient
}

var _ ports.IdempotencyCache = (*IdempotencyRepository)(nil)

func NewIdempotencyRepository(client *infrastructure.KeyDBClient) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*ports.CachedResponse, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting cached response: %w", err)
	}

	var response ports.CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("unmarshalling cached response: %w", err)
	}

	return &response, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, key string, response *ports.CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshalling response: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("setting cached response: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.Lock(ctx, key+lockSuffix, lockValue, ttl)
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, key+lockSuffix); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) IsHealthy(ctx context.Context) bool {
	return r.client.IsHealthy(ctx)
}
