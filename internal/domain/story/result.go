package story

import "time"

// Meta 单次生成的元数据
type Meta struct {
	// Model 产生结果的模型标识，缓存命中时为 "cache"
	Model string `json:"model"`
	// Tokens 上游报告的 token 数，缺省时按 ceil(len/4) 估算
	Tokens int `json:"tokens,omitempty"`
	// Timestamp 结果产生时间
	Timestamp time.Time `json:"timestamp"`
}

// Result 一次生成调用的结果
type Result struct {
	// Story 规范化后的故事文本
	Story string `json:"story"`
	// Cached 结果是否来自缓存
	Cached bool `json:"cached"`
	Meta   Meta `json:"meta"`
}

// EstimateTokens 按 4 字符一个 token 的近似规则估算 token 数
func EstimateTokens(raw string) int {
	if raw == "" {
		return 0
	}
	return (len(raw) + 3) / 4
}
