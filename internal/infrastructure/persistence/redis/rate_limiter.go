package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// SessionLimiter 绑定到单个会话的滑动窗口限流器
//
// 时间戳存于有序集合，按分值（毫秒时间戳）裁剪窗口外前缀后计数；
// 达到配额的请求被拒绝且不记录。
type SessionLimiter struct {
	client *Client
	key    string
	limit  int
	window time.Duration
}

// NewSessionLimiter 创建会话限流器
func NewSessionLimiter(client *Client, sessionID string, limit int, window time.Duration) *SessionLimiter {
	return &SessionLimiter{
		client: client,
		key:    BuildRateLimitKey(sessionID),
		limit:  limit,
		window: window,
	}
}

// Allow 检查是否允许请求（滑动窗口算法）
func (l *SessionLimiter) Allow(ctx context.Context, now time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", l.key),
		attribute.Int("ratelimit.limit", l.limit),
		attribute.Int64("ratelimit.window_ms", l.window.Milliseconds()),
	)
	defer span.End()

	nowMs := now.UnixMilli()
	// 窗口左边界为开区间，恰好早 window 的调用不再计数
	windowStart := nowMs - l.window.Milliseconds()

	pipe := l.client.rdb.Pipeline()

	// 移除窗口外的请求
	pipe.ZRemRangeByScore(ctx, l.key, "0", fmt.Sprintf("%d", windowStart))

	// 获取当前窗口内的请求数
	countCmd := pipe.ZCard(ctx, l.key)

	_, err := pipe.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	count := countCmd.Val()
	span.SetAttributes(attribute.Int64("ratelimit.current_count", count))

	if count >= int64(l.limit) {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, nil
	}

	// 记录本次请求
	l.client.rdb.ZAdd(ctx, l.key, redis.Z{
		Score:  float64(nowMs),
		Member: fmt.Sprintf("%d", nowMs),
	})
	l.client.rdb.Expire(ctx, l.key, l.window*2)

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true, nil
}

// Remaining 获取剩余配额
func (l *SessionLimiter) Remaining(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Remaining")
	span.SetAttributes(attribute.String("ratelimit.key", l.key))
	defer span.End()

	windowStart := now.UnixMilli() - l.window.Milliseconds()

	pipe := l.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, l.key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, l.key)

	_, err := pipe.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	remaining := l.limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	span.SetAttributes(attribute.Int("ratelimit.remaining", remaining))
	return remaining, nil
}

// BuildRateLimitKey 构建会话限流键
func BuildRateLimitKey(sessionID string) string {
	return fmt.Sprintf("ratelimit:story:%s", sessionID)
}
