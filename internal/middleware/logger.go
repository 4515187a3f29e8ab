package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/pkg/logger"
)

// AccessLog writes one structured line per request. Probe endpoints log
// at debug level so steady-state health polling does not drown out the
// gallery traffic, and server errors get their own level.
func AccessLog() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case probePath(path):
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// probePath reports whether the path belongs to a monitoring endpoint
// that gets hit on a fixed interval rather than by a person.
func probePath(path string) bool {
	switch strings.TrimPrefix(path, "/api") {
	case "/health", "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}
