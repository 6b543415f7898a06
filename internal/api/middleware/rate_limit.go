package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmearl/cds-api/config"
	"github.com/nmearl/cds-api/pkg/redis"
	"github.com/nmearl/cds-api/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的限流中间件，按 (scope, 客户端 IP) 计数
// rdb 为 nil 或 Redis 出错时降级放行（错误已在 redis 包内记录）
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
