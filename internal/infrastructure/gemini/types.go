// Package gemini 提供生成式语言服务的 REST 客户端
package gemini

// generateContentRequest :generateContent 请求体
type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// generateContentResponse :generateContent 成功响应体
type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

type usageMetadata struct {
	TotalTokenCount int `json:"totalTokenCount"`
}

// errorResponse 非成功状态下的响应体
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Output 一次成功调用的原始结果
type Output struct {
	// Text 模型返回的原始文本，未经规范化
	Text string
	// TotalTokens 上游报告的 token 总数，0 表示未报告
	TotalTokens int
	// Model 实际调用的模型标识
	Model string
}
