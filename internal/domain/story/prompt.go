package story

// InlineImage 随提示词内联发送的图片数据
type InlineImage struct {
	// MimeType 图片 MIME 类型，如 image/png
	MimeType string
	// Data 去除 data URL 前缀后的原始 base64 负载
	Data string
}

// Prompt 发往生成服务的提示负载：纯文本，或文本加内联图片
type Prompt struct {
	Text  string
	Image *InlineImage
}

// Multimodal 是否为多模态负载
func (p Prompt) Multimodal() bool {
	return p.Image != nil
}
