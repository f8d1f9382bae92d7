package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productKeyPrefix = "fulfillment:product:"

// RedisProductCache stores product info as JSON in Redis so that several
// instances share resolution results.
type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisProductCache creates a Redis product cache on an existing client.
// Keys expire after ttl; freshness inside that window is judged by the caller.
func NewRedisProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProductCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProductCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisProductCache) key(storeID, article string) string {
	return fmt.Sprintf("%s%s:%s", productKeyPrefix, storeID, product.NormalizeArticle(article))
}

// Get implements product.InfoCache. Redis errors are logged and treated as a miss.
func (c *RedisProductCache) Get(ctx context.Context, storeID, article string) (product.Info, bool) {
	data, err := c.client.Get(ctx, c.key(storeID, article)).Bytes()
	if errors.Is(err, redis.Nil) {
		return product.Info{}, false
	}
	if err != nil {
		c.logger.Warn("Failed to read product cache",
			zap.String("store_id", storeID),
			zap.String("article", article),
			zap.Error(err))
		return product.Info{}, false
	}

	var info product.Info
	if err := json.Unmarshal(data, &info); err != nil {
		c.logger.Warn("Corrupt product cache entry", zap.String("article", article), zap.Error(err))
		return product.Info{}, false
	}
	return info, true
}

// Set implements product.InfoCache
func (c *RedisProductCache) Set(ctx context.Context, storeID, article string, info product.Info) {
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(storeID, article), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write product cache",
			zap.String("store_id", storeID),
			zap.String("article", article),
			zap.Error(err))
	}
}

// TieredProductCache reads the local cache first and falls back to the shared
// tier, populating the local cache on a shared hit. Writes go to both tiers.
type TieredProductCache struct {
	l1 product.InfoCache
	l2 product.InfoCache
}

// NewTieredProductCache combines a local and a shared cache.
func NewTieredProductCache(l1, l2 product.InfoCache) *TieredProductCache {
	return &TieredProductCache{l1: l1, l2: l2}
}

// Get implements product.InfoCache
func (c *TieredProductCache) Get(ctx context.Context, storeID, article string) (product.Info, bool) {
	if info, ok := c.l1.Get(ctx, storeID, article); ok {
		return info, true
	}
	info, ok := c.l2.Get(ctx, storeID, article)
	if ok {
		c.l1.Set(ctx, storeID, article, info)
	}
	return info, ok
}

// Set implements product.InfoCache
func (c *TieredProductCache) Set(ctx context.Context, storeID, article string, info product.Info) {
	c.l1.Set(ctx, storeID, article, info)
	c.l2.Set(ctx, storeID, article, info)
}
