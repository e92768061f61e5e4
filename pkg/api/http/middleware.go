package http

import (
	"net/http"
	"time"

	"github.com/aescanero/gputest/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// corsMiddleware allows read-only cross-origin access, e.g. from dashboards
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		c.Next()
	}
}

// handlePreflight answers OPTIONS on routes that exist; other paths fall through to 404
func handlePreflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// requestLogger logs every request and records it in metrics when set
func requestLogger(logger *zap.Logger, metrics ports.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= http.StatusInternalServerError {
			logger.Error("HTTP request", fields...)
		} else {
			logger.Info("HTTP request", fields...)
		}

		if metrics != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(c.Request.Method, route, status, duration)
		}
	}
}
