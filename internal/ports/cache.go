package ports

import (
	"context"
	"time"
)

// CachedResponse is a replayable HTTP response.
type CachedResponse struct {
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	Body        []byte            `json:"body"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type IdempotencyCache interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) (*CachedResponse, error)

	Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error

	// SetLock returns false when another request already holds the key.
	SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	ReleaseLock(ctx context.Context, key string) error

	IsHealthy(ctx context.Context) bool
}
