package middlewares

import (
	"github.com/gin-gonic/gin"

	"smartbin/pkg/ginx"
	"smartbin/pkg/logger"
)

// ErrorHandler 统一错误处理：handler 通过 c.Error 上报且尚未写响应时，按错误分类输出
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log.Errorf(c.Request.Context(), "[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		if !c.Writer.Written() {
			ginx.FromError(c, err)
		}
	}
}
