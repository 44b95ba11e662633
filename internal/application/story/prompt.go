// Package story 实现故事生成的应用服务：提示构造、响应规范化、
// 限流与缓存编排
package story

import (
	"fmt"
	"strings"

	"tale-weaver-api/internal/domain/story"
)

// 角色与场景为空时代入的固定描述
const (
	FallbackCharacters = "An original protagonist"
	FallbackSetting    = "A vivid fictional world"
)

// defaultImageMIME data URL 缺失前缀时代入的 MIME 类型
const defaultImageMIME = "image/png"

// wordTarget 根据可选篇幅修饰项确定目标字数
func wordTarget(p *story.Params) int {
	if p.Length == nil {
		return 300
	}
	switch *p.Length {
	case "short":
		return 1000
	case "medium":
		return 2500
	case "long":
		return 5000
	default:
		return 300
	}
}

// BuildPrompt 将请求参数映射为提示负载
//
// 纯函数；依据 {文本,图片} × {叙事,对话} 选取四个模板之一。空白的
// 角色和场景字段代入固定描述，可选修饰项逐条追加为风格要求。
func BuildPrompt(p *story.Params) story.Prompt {
	if p.HasImage() {
		return buildImagePrompt(p)
	}
	return story.Prompt{Text: buildTextPrompt(p)}
}

func buildTextPrompt(p *story.Params) string {
	characters := strings.Join(p.CharacterList(), ", ")
	if characters == "" {
		characters = FallbackCharacters
	}
	setting := strings.TrimSpace(p.Setting)
	if setting == "" {
		setting = FallbackSetting
	}

	var b strings.Builder
	if p.Format == story.FormatDialogue {
		fmt.Fprintf(&b, "Write a %d-word %s story in dialogue-only format with these elements:\n\n", wordTarget(p), p.Genre)
	} else {
		fmt.Fprintf(&b, "Write a %d-word %s story with these elements:\n\n", wordTarget(p), p.Genre)
	}

	fmt.Fprintf(&b, "**Core Plot**: %s\n", p.Plot)
	fmt.Fprintf(&b, "**Characters**: %s\n", characters)
	fmt.Fprintf(&b, "**Setting**: %s\n", setting)
	fmt.Fprintf(&b, "**Perspective**: %s\n\n", p.Perspective)

	b.WriteString("**Requirements**:\n")
	if p.Format == story.FormatDialogue {
		b.WriteString("- Use only dialogue, formatted as \"Character: Dialogue text\" (e.g., \"Sarah: Hello\")\n")
		b.WriteString("- Each line must be spoken by a character (no narration)\n")
		b.WriteString("- Include at least 5-7 dialogue exchanges\n")
		fmt.Fprintf(&b, "- Maintain %s perspective through the dialogue\n", p.Perspective)
		b.WriteString("- Convey the plot and setting entirely through character speech\n")
		b.WriteString("- End with a clear resolution\n")
	} else {
		b.WriteString("- Three-act structure (setup → confrontation → resolution)\n")
		b.WriteString("- Minimum 3 natural dialogues\n")
		fmt.Fprintf(&b, "- Strict %s perspective\n", p.Perspective)
		b.WriteString("- Paragraph breaks every 3-5 sentences\n")
		b.WriteString("- Don't include any markdown formatting in your response\n")
	}

	appendStyleBlock(&b, p)
	return b.String()
}

func buildImagePrompt(p *story.Params) story.Prompt {
	mime, data := splitDataURL(*p.ImageBase64)

	var b strings.Builder
	if p.Format == story.FormatDialogue {
		fmt.Fprintf(&b, "Look at the attached image and write a %d-word %s story in dialogue-only format inspired by it.\n\n", wordTarget(p), p.Genre)
	} else {
		fmt.Fprintf(&b, "Look at the attached image and write a %d-word %s story inspired by it.\n\n", wordTarget(p), p.Genre)
	}

	b.WriteString("**Requirements**:\n")
	b.WriteString("- Invent fitting names for the characters visible in the image\n")
	b.WriteString("- Derive the setting and plot purely from the visual content\n")
	fmt.Fprintf(&b, "- Maintain %s perspective\n", p.Perspective)
	if p.Format == story.FormatDialogue {
		b.WriteString("- Use only dialogue, formatted as \"Character: Dialogue text\" (e.g., \"Sarah: Hello\")\n")
		b.WriteString("- Each line must be spoken by a character (no narration)\n")
		b.WriteString("- Include at least 5-7 dialogue exchanges\n")
		b.WriteString("- End with a clear resolution\n")
	} else {
		b.WriteString("- Three-act structure (setup → confrontation → resolution)\n")
		b.WriteString("- Minimum 3 natural dialogues\n")
		b.WriteString("- Don't include any markdown formatting in your response\n")
	}

	appendStyleBlock(&b, p)

	return story.Prompt{
		Text: b.String(),
		Image: &story.InlineImage{
			MimeType: mime,
			Data:     data,
		},
	}
}

// appendStyleBlock 追加可选修饰项对应的风格要求
func appendStyleBlock(b *strings.Builder, p *story.Params) {
	if p.Mood != nil && *p.Mood != "" {
		fmt.Fprintf(b, "- Maintain a %s overall mood\n", *p.Mood)
	}
	if p.Period != nil && *p.Period != "" {
		fmt.Fprintf(b, "- Set the story in the %s time period\n", *p.Period)
	}
	if p.Atmosphere != nil && *p.Atmosphere != "" {
		fmt.Fprintf(b, "- Evoke a %s atmosphere\n", *p.Atmosphere)
	}
}

// splitDataURL 拆分 data URL，返回 MIME 类型与原始 base64 负载
//
// 形如 data:image/png;base64,AAAA 的输入去除头部；无前缀时按原始
// base64 处理并使用默认 MIME 类型。
func splitDataURL(s string) (mime string, data string) {
	if !strings.HasPrefix(s, "data:") {
		return defaultImageMIME, s
	}
	rest := strings.TrimPrefix(s, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return defaultImageMIME, s
	}
	header := rest[:comma]
	data = rest[comma+1:]
	mime = header
	if semi := strings.Index(header, ";"); semi >= 0 {
		mime = header[:semi]
	}
	if mime == "" {
		mime = defaultImageMIME
	}
	return mime, data
}
