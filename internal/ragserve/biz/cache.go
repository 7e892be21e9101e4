package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/pkg/utils/json"
)

// QueryCacheConfig 查询缓存配置。
type QueryCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// QueryCache 查询结果缓存。
// 同一问题在不同任务描述下的嵌入不同，键必须同时覆盖两者。
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache 创建查询缓存实例。
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "ragserve:query:",
		}
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

// generateCacheKey 基于任务描述与原始查询生成缓存键（SHA256 哈希）。
func (c *QueryCache) generateCacheKey(taskDescription, query string) string {
	hash := sha256.Sum256([]byte(taskDescription + "\n" + query))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 从缓存获取查询结果。未命中时返回 (nil, nil)。
func (c *QueryCache) Get(ctx context.Context, taskDescription, query string) (*model.QueryResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, nil
	}

	cacheKey := c.generateCacheKey(taskDescription, query)

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("cache miss", "query", query, "key", cacheKey)
			return nil, nil
		}
		logger.Warnw("failed to get from cache", "error", err.Error(), "key", cacheKey)
		return nil, err
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached result", "error", err.Error(), "key", cacheKey)
		// 删除损坏的缓存
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil, err
	}

	logger.Infow("cache hit", "query", query, "key", cacheKey, "answer_length", len(result.Response))
	return &result, nil
}

// Set 将查询结果写入缓存。
func (c *QueryCache) Set(ctx context.Context, taskDescription, query string, result *model.QueryResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	cacheKey := c.generateCacheKey(taskDescription, query)

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", cacheKey)
		return err
	}

	logger.Debugw("cached query result", "query", query, "key", cacheKey, "ttl", c.config.TTL)
	return nil
}

// Clear 清除所有查询缓存。
func (c *QueryCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deletedCount := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deletedCount++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared query cache", "deleted_count", deletedCount)
	return nil
}

// GetStats 获取缓存统计信息。
func (c *QueryCache) GetStats(ctx context.Context) (map[string]any, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]any{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}, nil
}
