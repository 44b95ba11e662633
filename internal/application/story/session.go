package story

import (
	"sync"

	"tale-weaver-api/pkg/metrics"
)

// Session 单个调用方的生成上下文：独立的限流窗口与故事缓存
//
// 跨调用方共享任意一者都会错计窗口或串返他人的缓存结果，因此
// 两者始终按会话成对创建。
type Session struct {
	ID      string
	Limiter RateLimiter
	Cache   ResponseCache
}

// SessionFactory 按会话标识构建会话
type SessionFactory func(id string) *Session

// Registry 会话注册表，按标识惰性创建会话并复用
type Registry struct {
	mu       sync.Mutex
	factory  SessionFactory
	sessions map[string]*Session
}

// NewRegistry 创建会话注册表
func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// Get 获取指定标识的会话，不存在时创建
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess
	}

	sess := r.factory(id)
	r.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return sess
}

// Len 返回当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
