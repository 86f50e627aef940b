// Package cache provides patient balance cache implementations. The cache
// is an acceleration layer only; invoice rows remain the authoritative
// source and every entry expires on its own.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/config"
)

// RedisBalanceCache stores patient balances in Redis, one key per
// clinic/patient pair
type RedisBalanceCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisBalanceCacheOption is a functional option for configuring the cache
type RedisBalanceCacheOption func(*RedisBalanceCache)

// WithBalanceCacheTTL sets how long cached balances live
func WithBalanceCacheTTL(ttl time.Duration) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		c.ttl = ttl
	}
}

// WithBalanceCacheLogger sets the logger for the cache
func WithBalanceCacheLogger(logger *zap.Logger) RedisBalanceCacheOption {
	return func(c *RedisBalanceCache) {
		c.logger = logger
	}
}

// NewRedisBalanceCache creates a new Redis-backed balance cache
func NewRedisBalanceCache(cfg config.RedisConfig, opts ...RedisBalanceCacheOption) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisBalanceCache{
		client:     client,
		ownsClient: true,
		ttl:        15 * time.Minute,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client.
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisBalanceCacheWithClient(client *redis.Client, opts ...RedisBalanceCacheOption) *RedisBalanceCache {
	cache := &RedisBalanceCache{
		client:     client,
		ownsClient: false,
		ttl:        15 * time.Minute,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// balanceKey generates the cache key for a patient's balance
func (c *RedisBalanceCache) balanceKey(clinicID, patientID uuid.UUID) string {
	return fmt.Sprintf("patient_balance:%s:%s", clinicID, patientID)
}

// Get retrieves a cached balance. The second return is false on a miss.
func (c *RedisBalanceCache) Get(ctx context.Context, clinicID, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	key := c.balanceKey(clinicID, patientID)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("Balance cache miss", zap.String("key", key))
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get balance from cache: %w", err)
	}

	balance, err := decimal.NewFromString(data)
	if err != nil {
		// Corrupt entry, treat as a miss and drop it
		c.logger.Warn("Dropping unparseable balance cache entry",
			zap.String("key", key),
			zap.Error(err))
		c.client.Del(ctx, key)
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// Set stores a balance with the configured TTL
func (c *RedisBalanceCache) Set(ctx context.Context, clinicID, patientID uuid.UUID, balance decimal.Decimal) error {
	key := c.balanceKey(clinicID, patientID)
	if err := c.client.Set(ctx, key, balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set balance in cache: %w", err)
	}
	return nil
}

// Invalidate removes a patient's cached balance
func (c *RedisBalanceCache) Invalidate(ctx context.Context, clinicID, patientID uuid.UUID) error {
	key := c.balanceKey(clinicID, patientID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate balance in cache: %w", err)
	}
	return nil
}

// Close closes the Redis client if this cache owns it
func (c *RedisBalanceCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
