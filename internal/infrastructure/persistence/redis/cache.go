package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var cacheTracer = otel.Tracer("redis.cache")

// StoryCache 绑定到单个会话的故事缓存
//
// 规范参数键含完整剧情文本，长度不定，存储键使用其 SHA-256 摘要；
// 精确匹配语义不变。条目不设过期，生命周期由部署方的淘汰策略
// 管理。
type StoryCache struct {
	client    *Client
	sessionID string
}

// NewStoryCache 创建会话故事缓存
func NewStoryCache(client *Client, sessionID string) *StoryCache {
	return &StoryCache{
		client:    client,
		sessionID: sessionID,
	}
}

// Get 查询缓存
func (c *StoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	storageKey := c.storageKey(key)
	ctx, span := cacheTracer.Start(ctx, "cache.Get",
		trace.WithAttributes(attribute.String("cache.key", storageKey)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, storageKey).Result()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return val, true, nil
}

// Put 写入缓存，同键覆盖
func (c *StoryCache) Put(ctx context.Context, key string, value string) error {
	storageKey := c.storageKey(key)
	ctx, span := cacheTracer.Start(ctx, "cache.Put",
		trace.WithAttributes(attribute.String("cache.key", storageKey)))
	defer span.End()

	if err := c.client.rdb.Set(ctx, storageKey, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// storageKey 构建存储键：story:<会话>:<参数键摘要>
func (c *StoryCache) storageKey(paramsKey string) string {
	sum := sha256.Sum256([]byte(paramsKey))
	return fmt.Sprintf("story:%s:%s", c.sessionID, hex.EncodeToString(sum[:]))
}
