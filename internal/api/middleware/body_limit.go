package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmearl/cds-api/pkg/response"
)

// BodyLimit 请求体大小限制，maxBytes <= 0 时不限制
// 声明了 Content-Length 的超限请求直接 413；未声明长度的请求由 MaxBytesReader 截断，
// 绑定失败后按参数错误处理
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
