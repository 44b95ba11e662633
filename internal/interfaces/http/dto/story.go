package dto

import (
	"time"

	"tale-weaver-api/internal/domain/story"
)

// GenerateStoryRequest 生成故事请求
//
// 可选修饰项使用指针，以保留「未传」与「传空串」的区别。
type GenerateStoryRequest struct {
	Genre       string `json:"genre" binding:"required"`
	Plot        string `json:"plot"`
	Perspective string `json:"perspective" binding:"required"`
	Characters  string `json:"characters"`
	Setting     string `json:"setting"`
	Format      string `json:"format" binding:"required,oneof=narrative dialogue"`

	Length     *string `json:"length,omitempty"`
	Mood       *string `json:"mood,omitempty"`
	Period     *string `json:"period,omitempty"`
	Atmosphere *string `json:"atmosphere,omitempty"`

	ImageBase64 *string `json:"image_base64,omitempty"`
}

// ToParams 转换为领域参数
func (r *GenerateStoryRequest) ToParams() story.Params {
	return story.Params{
		Genre:       story.Genre(r.Genre),
		Plot:        r.Plot,
		Perspective: story.Perspective(r.Perspective),
		Characters:  r.Characters,
		Setting:     r.Setting,
		Format:      story.Format(r.Format),
		Length:      r.Length,
		Mood:        r.Mood,
		Period:      r.Period,
		Atmosphere:  r.Atmosphere,
		ImageBase64: r.ImageBase64,
	}
}

// StoryMeta 生成元信息
type StoryMeta struct {
	Model     string    `json:"model"`
	Tokens    int       `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
}

// StoryResponse 生成故事响应
type StoryResponse struct {
	Story  string    `json:"story"`
	Cached bool      `json:"cached"`
	Meta   StoryMeta `json:"meta"`
}

// NewStoryResponse 从领域结果构造响应
func NewStoryResponse(r *story.Result) *StoryResponse {
	return &StoryResponse{
		Story:  r.Story,
		Cached: r.Cached,
		Meta: StoryMeta{
			Model:     r.Meta.Model,
			Tokens:    r.Meta.Tokens,
			Timestamp: r.Meta.Timestamp,
		},
	}
}

// OptionsResponse 可选项枚举响应
type OptionsResponse struct {
	Genres       []story.Genre       `json:"genres"`
	Perspectives []story.Perspective `json:"perspectives"`
	Formats      []story.Format      `json:"formats"`
	Lengths      []string            `json:"lengths"`
	Moods        []string            `json:"moods"`
	Periods      []string            `json:"periods"`
	Atmospheres  []string            `json:"atmospheres"`
}

// NewOptionsResponse 构造枚举响应
func NewOptionsResponse() *OptionsResponse {
	return &OptionsResponse{
		Genres:       story.Genres,
		Perspectives: story.Perspectives,
		Formats:      story.Formats,
		Lengths:      story.Lengths,
		Moods:        story.Moods,
		Periods:      story.Periods,
		Atmospheres:  story.Atmospheres,
	}
}
