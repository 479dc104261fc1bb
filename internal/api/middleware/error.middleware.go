package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into the
// standardized response shape and logs them.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		statusCode := determineStatusCode(err)

		fields := []interface{}{
			"status", statusCode,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"error", err.Error(),
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, "user_id", userID)
		}
		if statusCode >= 500 {
			log.Error("HTTP Error", fields...)
		} else {
			log.Warn("HTTP Error", fields...)
		}

		if !c.Writer.Written() {
			c.JSON(statusCode, ErrorResponse{
				Error: err.Error(),
				Code:  errorCodeFromStatus(statusCode),
			})
		}
	}
}

func determineStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, repo.ErrNotFound) {
		return http.StatusNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "invalid", "required", "must be", "cannot be empty", "malformed"):
		return http.StatusBadRequest
	case containsAny(msg, "not found", "does not exist"):
		return http.StatusNotFound
	case containsAny(msg, "unauthorized", "forbidden", "permission denied"):
		return http.StatusForbidden
	case containsAny(msg, "already exists", "conflict", "duplicate"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorCodeFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "ACCESS_DENIED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
