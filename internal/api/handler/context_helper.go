package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nmearl/cds-api/internal/api/middleware"
	"github.com/nmearl/cds-api/pkg/logger"
	"github.com/nmearl/cds-api/pkg/response"
)

// MustGetUintParam 从路径参数中解析正整数 id。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustGetUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, response.CodeInvalidParams, name+" 必须是正整数")
		return 0, false
	}
	return uint(id), true
}

// requestLogger 派生携带当前请求 request_id 的日志器
func requestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	return logger.WithRequestID(base, c.GetString(middleware.RequestIDKey))
}
