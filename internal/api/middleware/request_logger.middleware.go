package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/pkg/logger"
)

const unknownSessionID = "unknown"

// RequestLogger logs HTTP requests through the structured logger instead of
// gin's default writer.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		sessionID := unknownSessionID
		if param.Keys != nil {
			if sid, exists := param.Keys["session_id"]; exists {
				if sidStr, ok := sid.(string); ok {
					sessionID = sidStr
				}
			}
		}

		fields := []interface{}{
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency,
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
			"session_id", sessionID,
			"request_id", param.Request.Header.Get("X-Request-ID"),
			"content_length", param.Request.ContentLength,
		}
		if param.ErrorMessage != "" {
			fields = append(fields, "error", param.ErrorMessage)
		}

		switch {
		case param.StatusCode >= 500:
			log.Error("HTTP Request", fields...)
		case param.StatusCode >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}

		return ""
	})
}
