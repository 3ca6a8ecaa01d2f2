package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware for request logging. Server errors are
// also written to the error event log when eventLogger is set.
func Logger(log *zap.Logger, eventLogger *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		log.Info("HTTP request", fields...)

		if statusCode >= 500 && eventLogger != nil {
			eventLogger.LogAppError("HTTP error response", fields...)
		}
	}
}

// CORS allows browser clients on other origins to call the API
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
