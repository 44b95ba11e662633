package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"tale-weaver-api/internal/config"
	"tale-weaver-api/internal/domain/story"
	"tale-weaver-api/pkg/errors"
)

var tracer = otel.Tracer("gemini")

// Client 生成服务客户端
//
// 凭证仅存在于请求 URL 的查询参数中，任何日志、span 与错误信息
// 都不得携带完整 URL。
type Client struct {
	cfg  *config.GeminiConfig
	http *http.Client
}

// NewClient 创建生成服务客户端
func NewClient(cfg *config.GeminiConfig) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model 返回配置的模型标识
func (c *Client) Model() string {
	return c.cfg.Model
}

// GenerateContent 发起一次生成调用
//
// 取消与超时经由 ctx 生效；调用方负责区分取消与其它传输失败。
func (c *Client) GenerateContent(ctx context.Context, prompt story.Prompt) (*Output, error) {
	ctx, span := tracer.Start(ctx, "gemini.GenerateContent")
	span.SetAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Bool("llm.multimodal", prompt.Multimodal()),
	)
	defer span.End()

	body, err := json.Marshal(buildRequest(prompt))
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to encode generation request")
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to build generation request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error 会把完整 URL（含凭证）带进错误文本，只保留底层原因
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return nil, errors.Upstream(upstreamMessage(data), fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		span.RecordError(err)
		return nil, errors.MalformedResponse().WithError(err)
	}

	if len(parsed.Candidates) == 0 ||
		len(parsed.Candidates[0].Content.Parts) == 0 ||
		parsed.Candidates[0].Content.Parts[0].Text == "" {
		return nil, errors.MalformedResponse()
	}

	out := &Output{
		Text:  parsed.Candidates[0].Content.Parts[0].Text,
		Model: c.cfg.Model,
	}
	if parsed.UsageMetadata != nil {
		out.TotalTokens = parsed.UsageMetadata.TotalTokenCount
	}

	span.SetAttributes(attribute.Int("llm.total_tokens", out.TotalTokens))
	return out, nil
}

// buildRequest 组装 contents/parts 请求结构
func buildRequest(prompt story.Prompt) generateContentRequest {
	parts := []part{{Text: prompt.Text}}
	if prompt.Image != nil {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: prompt.Image.MimeType,
				Data:     prompt.Image.Data,
			},
		})
	}
	return generateContentRequest{
		Contents: []content{{Parts: parts}},
	}
}

// upstreamMessage 提取上游错误描述，缺省返回空串
func upstreamMessage(data []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}
