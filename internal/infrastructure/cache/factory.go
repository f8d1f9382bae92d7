package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProductCacheFactory creates the product cache based on configuration
type ProductCacheFactory struct {
	redisConfig config.RedisConfig
	ttl         time.Duration
	logger      *zap.Logger
}

// NewProductCacheFactory creates a new factory. ttl bounds the lifetime of
// shared entries and should be the longest freshness window of product info.
func NewProductCacheFactory(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) *ProductCacheFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductCacheFactory{redisConfig: cfg, ttl: ttl, logger: logger}
}

// CreateRedisClient connects to Redis and verifies the connection.
func (f *ProductCacheFactory) CreateRedisClient(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateCache returns a tiered cache when Redis is configured and reachable,
// and an in-memory cache otherwise. The returned close function releases the
// Redis client, if any.
func (f *ProductCacheFactory) CreateCache(ctx context.Context) (product.InfoCache, func() error) {
	memory := NewInMemoryProductCache()
	if f.redisConfig.Addr() == "" {
		f.logger.Info("using in-memory product cache")
		return memory, func() error { return nil }
	}

	client, err := f.CreateRedisClient(ctx)
	if err != nil {
		f.logger.Warn("Redis unavailable, falling back to in-memory product cache", zap.Error(err))
		return memory, func() error { return nil }
	}

	f.logger.Info("using tiered product cache", zap.String("redis", f.redisConfig.Addr()))
	return NewTieredProductCache(memory, NewRedisProductCache(client, f.ttl, f.logger)), client.Close
}
