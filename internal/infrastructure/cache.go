package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/checkpoint/internal/config"
	"github.com/architeacher/checkpoint/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const healthCheckTimeout = 3 * time.Second

// compareAndSwapScript sets KEYS[1] to ARGV[2] only while it still holds ARGV[1].
var compareAndSwapScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false or tonumber(current) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
`)

// KeyDBClient backs idempotency replay and the shared rate limiter store.
type KeyDBClient struct {
	client *redis.Client
	logger logger.Logger
	expiry time.Duration
}

func NewKeyDBClient(cfg config.Cache, log logger.Logger) *KeyDBClient {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           int(cfg.DB),
		PoolSize:     int(cfg.PoolSize),
		MinIdleConns: int(cfg.MinIdleConns),
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   int(cfg.MaxRetries),
	})

	return &KeyDBClient{
		client: client,
		logger: log.Component("keydb"),
		expiry: cfg.DefaultExpiry,
	}
}

func (c *KeyDBClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *KeyDBClient) Close() error {
	return c.client.Close()
}

// IsHealthy pings with its own short deadline.
func (c *KeyDBClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	return c.Ping(ctx) == nil
}

// Get returns redis.Nil for missing keys.
func (c *KeyDBClient) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	result, err := c.client.Get(ctx, key).Bytes()

	c.logger.Debug().
		Str("key", key).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Bool("hit", err == nil).
		Msg("keydb get operation")

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, redis.Nil):
		return nil, redis.Nil
	default:
		c.logger.Error().Err(err).Str("key", key).Msg("keydb get operation failed")

		return nil, err
	}
}

// Set stores value, a zero ttl means the configured default expiry.
func (c *KeyDBClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.expiry
	}

	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	c.trace("set", key, ttl, start, err)

	return err
}

// Lock acquires key with SETNX semantics.
func (c *KeyDBClient) Lock(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	start := time.Now()
	acquired, err := c.client.SetNX(ctx, key, value, ttl).Result()
	c.trace("setnx", key, ttl, start, err)

	if err != nil {
		return false, fmt.Errorf("acquiring lock: %w", err)
	}

	return acquired, nil
}

func (c *KeyDBClient) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.client.Del(ctx, key).Err()
	c.trace("delete", key, 0, start, err)

	return err
}

// GetInt64 returns the stored value and the read time, or zero values for a missing key.
func (c *KeyDBClient) GetInt64(ctx context.Context, key string) (int64, time.Time, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, time.Time{}, nil
		}

		return 0, time.Time{}, err
	}

	return val, time.Now(), nil
}

func (c *KeyDBClient) SetInt64NX(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *KeyDBClient) CompareAndSwapInt64(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := compareAndSwapScript.Run(ctx, c.client, []string{key}, old, new, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (c *KeyDBClient) trace(op, key string, ttl time.Duration, start time.Time, err error) {
	event := c.logger.Debug().
		Str("key", key).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Bool("success", err == nil)

	if ttl > 0 {
		event = event.Str("expiry", ttl.String())
	}

	event.Msgf("keydb %s operation", op)
}
