// Package story 定义故事生成领域模型
package story

import (
	"strconv"
	"strings"
)

// Genre 故事题材
type Genre string

const (
	GenreFantasy   Genre = "fantasy"
	GenreSciFi     Genre = "sci-fi"
	GenreMystery   Genre = "mystery"
	GenreHorror    Genre = "horror"
	GenreAdventure Genre = "adventure"
	GenreRomance   Genre = "romance"
)

// Perspective 叙事视角
type Perspective string

const (
	PerspectiveFirst  Perspective = "first-person"
	PerspectiveSecond Perspective = "second-person"
	PerspectiveThird  Perspective = "third-person"
)

// Format 输出格式
type Format string

const (
	FormatNarrative Format = "narrative"
	FormatDialogue  Format = "dialogue"
)

// 可选修饰项取值
var (
	Genres       = []Genre{GenreFantasy, GenreSciFi, GenreMystery, GenreHorror, GenreAdventure, GenreRomance}
	Perspectives = []Perspective{PerspectiveFirst, PerspectiveSecond, PerspectiveThird}
	Formats      = []Format{FormatNarrative, FormatDialogue}
	Lengths      = []string{"short", "medium", "long"}
	Moods        = []string{"happy", "mysterious", "humorous", "sad"}
	Periods      = []string{"ancient", "medieval", "renaissance", "victorian", "modern", "near-future", "far-future", "post-apocalyptic"}
	Atmospheres  = []string{"summer", "winter", "rainy", "sunny"}
)

// MinPlotLength 纯文本模式下有效剧情的最小长度（去除首尾空白后）
const MinPlotLength = 10

// Params 单次生成请求的参数描述，构造后不再修改
//
// 可选修饰项使用指针以区分「未指定」与「显式空值」：两者会产生
// 不同的缓存键。
type Params struct {
	Genre       Genre       `json:"genre"`
	Plot        string      `json:"plot"`
	Perspective Perspective `json:"perspective"`
	Characters  string      `json:"characters"`
	Setting     string      `json:"setting"`
	Format      Format      `json:"format"`

	Length     *string `json:"length,omitempty"`
	Mood       *string `json:"mood,omitempty"`
	Period     *string `json:"period,omitempty"`
	Atmosphere *string `json:"atmosphere,omitempty"`

	// ImageBase64 data URL 形式的参考图片，存在时为多模态请求
	ImageBase64 *string `json:"image_base64,omitempty"`
}

// HasImage 是否为多模态请求
func (p *Params) HasImage() bool {
	return p.ImageBase64 != nil && *p.ImageBase64 != ""
}

// WellFormed 检查请求是否构造良好：文本模式要求非平凡剧情，
// 图片模式不要求文本字段
func (p *Params) WellFormed() bool {
	if p.HasImage() {
		return true
	}
	return len(strings.TrimSpace(p.Plot)) > MinPlotLength
}

// CharacterList 返回清洗后的角色列表：逐项去空白、丢弃空项
func (p *Params) CharacterList() []string {
	parts := strings.Split(p.Characters, ",")
	out := make([]string, 0, len(parts))
	for _, c := range parts {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// CacheKey 计算参数的规范缓存键
//
// 键覆盖全部字段，字段顺序固定；可选项缺省与显式空串编码不同
// （"-" 对 "+0:"），保证「未指定」与「指定为空」不会碰撞。值
// 采用长度前缀编码，使键对字段内容中的分隔符安全。
func (p *Params) CacheKey() string {
	var b strings.Builder
	b.WriteString("v1|")
	writeField(&b, string(p.Genre))
	writeField(&b, p.Plot)
	writeField(&b, string(p.Perspective))
	writeField(&b, p.Characters)
	writeField(&b, p.Setting)
	writeField(&b, string(p.Format))
	writeOptField(&b, p.Length)
	writeOptField(&b, p.Mood)
	writeOptField(&b, p.Period)
	writeOptField(&b, p.Atmosphere)
	writeOptField(&b, p.ImageBase64)
	return b.String()
}

func writeField(b *strings.Builder, v string) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteByte(':')
	b.WriteString(v)
	b.WriteByte('|')
}

func writeOptField(b *strings.Builder, v *string) {
	if v == nil {
		b.WriteString("-|")
		return
	}
	b.WriteByte('+')
	writeField(b, *v)
}
