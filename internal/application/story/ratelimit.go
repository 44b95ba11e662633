package story

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 限流器接口，进程内与 Redis 后端各有实现
type RateLimiter interface {
	// Allow 检查当前时刻能否发起一次生成，允许时记录该次调用
	Allow(ctx context.Context, now time.Time) (bool, error)
	// Remaining 返回当前窗口内的剩余配额
	Remaining(ctx context.Context, now time.Time) (int, error)
}

// SlidingWindowLimiter 进程内滑动窗口限流器
//
// 时间戳按插入顺序单调递增，窗口裁剪只需去除前缀。拒绝的调用
// 不计入窗口。持锁保证并发安全。
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
}

// NewSlidingWindowLimiter 创建滑动窗口限流器
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
	}
}

// Allow 实现 RateLimiter
func (l *SlidingWindowLimiter) Allow(_ context.Context, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trim(now)

	if len(l.stamps) >= l.limit {
		return false, nil
	}

	l.stamps = append(l.stamps, now)
	return true, nil
}

// Remaining 实现 RateLimiter
func (l *SlidingWindowLimiter) Remaining(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trim(now)

	remaining := l.limit - len(l.stamps)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// trim 去除已滑出窗口的前缀时间戳
//
// 窗口左边界为开区间：恰好早 window 的调用不再计数。
func (l *SlidingWindowLimiter) trim(now time.Time) {
	cut := 0
	for cut < len(l.stamps) && now.Sub(l.stamps[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[cut:]...)
	}
}
