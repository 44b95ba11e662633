// Package middleware 提供 HTTP 中间件
package middleware

import (
	"tale-weaver-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	// SessionIDHeader 会话标识头，由前端生成并在整个浏览器会话内复用
	SessionIDHeader = "X-Session-ID"

	// SessionIDKey Gin Context 中的会话标识键
	SessionIDKey = "session_id"
)

// SessionID 会话标识解析中间件
//
// 限流窗口与故事缓存按会话隔离；未携带会话头的请求退化为按
// 客户端 IP 归组。
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" {
			sessionID = "ip:" + c.ClientIP()
		}

		c.Set(SessionIDKey, sessionID)

		ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, sessionID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSessionIDFromGin 从 Gin Context 获取会话标识
func GetSessionIDFromGin(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
