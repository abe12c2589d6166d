// Package cache provides the Redis-backed key-value store adapter used for
// idempotency records and response caching.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/quotes-aggregator/internal/domain"
)

// connectTimeout bounds the startup connectivity probe.
const connectTimeout = 5 * time.Second

// Config holds Redis connection configuration.
type Config struct {
	Address  string
	Password string
	DB       int
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// RedisCache implements ports.Cache over a Redis connection.
// Only single-key operations are used; idempotency relies on SETNX plus TTL
// semantics, never on cross-key transactions.
type RedisCache struct {
	client *redis.Client
}

// New creates a Redis cache and verifies connectivity.
func New(cfg Config) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value. Returns domain.ErrNotFound for missing keys and
// domain.ErrUnavailable for transport failures.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewNotFoundError("cache entry", key)
		}
		return nil, domain.NewUnavailableError("cache", err.Error())
	}

	return val, nil
}

// Set stores a value with an expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return domain.NewUnavailableError("cache", err.Error())
	}

	return nil
}

// SetNX stores a value only if the key does not already exist.
// Returns true if this call stored the value.
func (c *RedisCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, domain.NewUnavailableError("cache", err.Error())
	}

	return stored, nil
}

// Ping verifies the store is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return domain.NewUnavailableError("cache", err.Error())
	}

	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Name returns the health check name for this adapter.
// Implements ports.HealthChecker.
func (c *RedisCache) Name() string {
	return "redis"
}

// Check performs a health check by pinging the store.
// Implements ports.HealthChecker.
func (c *RedisCache) Check(ctx context.Context) error {
	return c.Ping(ctx)
}
