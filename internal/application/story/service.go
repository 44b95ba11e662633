package story

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"tale-weaver-api/internal/domain/story"
	"tale-weaver-api/internal/infrastructure/gemini"
	"tale-weaver-api/pkg/errors"
	"tale-weaver-api/pkg/logger"
	"tale-weaver-api/pkg/metrics"
)

var tracer = otel.Tracer("story.service")

// CachedModel 缓存命中结果的模型标识
const CachedModel = "cache"

// GenerationClient 上游生成服务客户端
type GenerationClient interface {
	GenerateContent(ctx context.Context, prompt story.Prompt) (*gemini.Output, error)
	Model() string
}

// Service 故事生成服务
//
// 自身无状态；限流窗口与缓存由调用方通过 Session 传入，每个会话
// 一份。同会话并发提交相同参数时用 singleflight 合并上游调用。
type Service struct {
	client GenerationClient
	flight singleflight.Group
}

// NewService 创建故事生成服务
func NewService(client GenerationClient) *Service {
	return &Service{client: client}
}

// Generate 执行一次生成
//
// 顺序：限流判定 -> 缓存查询 -> 构造提示 -> 上游调用 -> 文本规范化
// -> 缓存写入。失败与取消的调用不写缓存；限流判定已消耗的配额不
// 退还。内部不做任何重试。
func (s *Service) Generate(ctx context.Context, sess *Session, params *story.Params) (*story.Result, error) {
	ctx, span := tracer.Start(ctx, "story.Generate")
	span.SetAttributes(
		attribute.String("story.genre", string(params.Genre)),
		attribute.String("story.format", string(params.Format)),
		attribute.Bool("story.multimodal", params.HasImage()),
	)
	defer span.End()

	start := time.Now()
	format := string(params.Format)

	// 1. 限流判定；限流器自身故障时放行，避免阻断业务
	allowed, err := sess.Limiter.Allow(ctx, start)
	if err != nil {
		logger.Warn(ctx, "rate limiter unavailable, admitting request", "error", err.Error())
		allowed = true
	}
	if !allowed {
		span.SetAttributes(attribute.Bool("story.rate_limited", true))
		metrics.RateLimitRejections.Inc()
		metrics.StoryGenerationTotal.WithLabelValues(format, "rate_limited").Inc()
		return nil, errors.RateLimited()
	}

	// 2. 缓存查询；命中直接返回并标记来源
	key := params.CacheKey()
	if cached, hit, err := sess.Cache.Get(ctx, key); err != nil {
		logger.Warn(ctx, "cache lookup failed, treating as miss", "error", err.Error())
	} else if hit {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		metrics.CacheHits.WithLabelValues("story").Inc()
		metrics.StoryGenerationTotal.WithLabelValues(format, "cached").Inc()
		return cachedResult(cached), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))
	metrics.CacheMisses.WithLabelValues("story").Inc()

	// 3. 合并同会话的并发相同请求，仅发起一次上游调用
	v, err, shared := s.flight.Do(sess.ID+"\x00"+key, func() (interface{}, error) {
		// 再次检查缓存（可能已被并发请求填充）
		if cached, hit, err := sess.Cache.Get(ctx, key); err == nil && hit {
			return cachedResult(cached), nil
		}
		return s.callUpstream(ctx, sess, params, key)
	})
	span.SetAttributes(attribute.Bool("story.flight_shared", shared))
	if err != nil {
		appErr := classifyUpstreamError(ctx, err)
		span.RecordError(appErr)
		metrics.StoryGenerationTotal.WithLabelValues(format, failureStatus(appErr)).Inc()
		logger.Error(ctx, "story generation failed", appErr, "format", format)
		return nil, appErr
	}

	result := v.(*story.Result)
	if result.Cached {
		metrics.StoryGenerationTotal.WithLabelValues(format, "cached").Inc()
		return result, nil
	}

	metrics.StoryGenerationTotal.WithLabelValues(format, "fresh").Inc()
	metrics.StoryGenerationDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	metrics.StoryLength.WithLabelValues(format).Observe(float64(len(result.Story)))

	logger.Info(ctx, "story generated",
		"format", format,
		"genre", string(params.Genre),
		"tokens", result.Meta.Tokens,
		"length", len(result.Story),
	)
	return result, nil
}

// callUpstream 构造提示、调用上游并写缓存
func (s *Service) callUpstream(ctx context.Context, sess *Session, params *story.Params, key string) (*story.Result, error) {
	prompt := BuildPrompt(params)

	callStart := time.Now()
	out, err := s.client.GenerateContent(ctx, prompt)
	metrics.LLMCallDuration.WithLabelValues(s.client.Model()).Observe(time.Since(callStart).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(s.client.Model(), "error").Inc()
		return nil, err
	}
	metrics.LLMCallTotal.WithLabelValues(out.Model, "ok").Inc()

	normalized := Normalize(out.Text)
	if err := sess.Cache.Put(ctx, key, normalized); err != nil {
		// 缓存写入失败不影响返回结果
		logger.Warn(ctx, "cache write failed", "error", err.Error())
	}

	tokens := out.TotalTokens
	if tokens == 0 {
		tokens = story.EstimateTokens(out.Text)
	}
	metrics.LLMTokensUsed.WithLabelValues(out.Model).Add(float64(tokens))

	return &story.Result{
		Story:  normalized,
		Cached: false,
		Meta: story.Meta{
			Model:     out.Model,
			Tokens:    tokens,
			Timestamp: time.Now(),
		},
	}, nil
}

// cachedResult 组装缓存来源的结果
func cachedResult(text string) *story.Result {
	return &story.Result{
		Story:  text,
		Cached: true,
		Meta: story.Meta{
			Model:     CachedModel,
			Timestamp: time.Now(),
		},
	}
}

// classifyUpstreamError 将上游调用失败归入错误分类
//
// 调用方主动取消归为取消；其余未分类的传输失败一律视作上游错误。
func classifyUpstreamError(ctx context.Context, err error) *errors.AppError {
	if stderrors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return errors.Cancelled(err)
	}
	if errors.IsAppError(err) {
		return errors.AsAppError(err)
	}
	return errors.Upstream("", err)
}

// failureStatus 失败指标的状态标签
func failureStatus(err *errors.AppError) string {
	switch err.Code {
	case errors.CodeMalformedResponse:
		return "malformed"
	case errors.CodeRequestCancelled:
		return "cancelled"
	default:
		return "upstream_error"
	}
}
