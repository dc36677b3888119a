package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/logger"
)

// Logger logs one structured line per request with method, path,
// status, and latency.
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.WithContext(c.Request.Context()).Info("request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}
