package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appstory "tale-weaver-api/internal/application/story"
	"tale-weaver-api/internal/interfaces/http/dto"
	"tale-weaver-api/internal/interfaces/http/middleware"
	"tale-weaver-api/pkg/errors"
	"tale-weaver-api/pkg/logger"
)

// RateLimitRemainingHeader 当前窗口剩余配额响应头
const RateLimitRemainingHeader = "X-RateLimit-Remaining"

// StoryHandler 故事生成处理器
type StoryHandler struct {
	service  *appstory.Service
	registry *appstory.Registry
}

// NewStoryHandler 创建故事生成处理器
func NewStoryHandler(service *appstory.Service, registry *appstory.Registry) *StoryHandler {
	return &StoryHandler{
		service:  service,
		registry: registry,
	}
}

// GenerateStory 生成故事
// @Summary 生成故事
// @Description 根据题材、剧情等参数生成短篇故事，同参数重复请求命中缓存
// @Tags Stories
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "会话标识"
// @Param body body dto.GenerateStoryRequest true "生成参数"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/stories [post]
func (h *StoryHandler) GenerateStory(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	params := req.ToParams()
	if !params.WellFormed() {
		dto.BadRequest(c, "plot is required and must be longer than 10 characters")
		return
	}

	sess := h.registry.Get(middleware.GetSessionIDFromGin(c))

	result, err := h.service.Generate(ctx, sess, &params)
	h.setQuotaHeader(c, sess)
	if err != nil {
		h.renderError(c, err)
		return
	}

	dto.Success(c, dto.NewStoryResponse(result))
}

// setQuotaHeader 回报当前窗口剩余配额；限流器不可用时不设置
func (h *StoryHandler) setQuotaHeader(c *gin.Context, sess *appstory.Session) {
	remaining, err := sess.Limiter.Remaining(c.Request.Context(), time.Now())
	if err != nil {
		return
	}
	c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
}

// Options 返回全部可选生成参数枚举
// @Summary 生成参数枚举
// @Description 返回题材、视角、格式等可选项，供前端构建表单
// @Tags Stories
// @Produce json
// @Success 200 {object} dto.Response[dto.OptionsResponse]
// @Router /v1/stories/options [get]
func (h *StoryHandler) Options(c *gin.Context) {
	dto.Success(c, dto.NewOptionsResponse())
}

func (h *StoryHandler) renderError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		if appErr.Code == errors.CodeRateLimited {
			logger.Warn(ctx, "story generation rate limited")
		} else {
			logger.Error(ctx, "story generation failed", err)
		}
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}

	logger.Error(ctx, "story generation failed", err)
	dto.InternalError(c, "story generation failed")
}
