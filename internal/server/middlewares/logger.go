package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"smartbin/pkg/logger"
)

// Logger 访问日志
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		format := "[HTTP] %s %s %d %s from %s"
		args := []interface{}{c.Request.Method, c.Request.URL.Path, status, time.Since(start), c.ClientIP()}
		switch {
		case status >= 500:
			log.Errorf(c.Request.Context(), format, args...)
		case status >= 400:
			log.Warnf(c.Request.Context(), format, args...)
		default:
			log.Infof(c.Request.Context(), format, args...)
		}
	}
}
