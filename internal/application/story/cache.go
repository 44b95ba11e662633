package story

import (
	"container/list"
	"context"
	"sync"

	"tale-weaver-api/pkg/metrics"
)

// ResponseCache 故事缓存接口：精确键匹配，无模糊查找
type ResponseCache interface {
	// Get 查询缓存，返回规范化的故事文本与是否命中
	Get(ctx context.Context, key string) (string, bool, error)
	// Put 写入缓存，同键覆盖
	Put(ctx context.Context, key string, value string) error
}

// cacheEntry 一条缓存记录，附带命中计数
type cacheEntry struct {
	key   string
	value string
	hits  int64
}

// MemoryCache 进程内故事缓存
//
// 条目在会话存续期内不过期；超出容量上限按 LRU 淘汰。
// maxEntries <= 0 表示不设上限。持锁保证并发安全。
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get 实现 ResponseCache
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false, nil
	}

	c.ll.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	entry.hits++
	return entry.value, true, nil
}

// Put 实现 ResponseCache
func (c *MemoryCache) Put(_ context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).value = value
		return nil
	}

	el := c.ll.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = el

	if c.maxEntries > 0 && c.ll.Len() > c.maxEntries {
		c.evictOldest()
	}
	return nil
}

// Len 返回当前条目数
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// evictOldest 淘汰最久未使用的条目，调用方持锁
func (c *MemoryCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
	metrics.CacheEvictions.WithLabelValues("memory").Inc()
}
