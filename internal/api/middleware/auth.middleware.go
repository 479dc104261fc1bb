package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/internal/services"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// LocalUserID is the principal assigned to every request when authentication
// is disabled (single-user local deployments).
const LocalUserID = "local"

// AuthMiddleware validates the bearer token on every request and attaches the
// authenticated principal to the gin context.
func AuthMiddleware(auth *services.AuthService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Authorization token required",
			})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			log.Warn("rejected request with invalid token", "path", c.Request.URL.Path, "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Set("roles", claims.Roles)
		c.Next()
	}
}

// NoAuthMiddleware stamps every request with the local principal. Used when
// auth.enabled is false, so handlers can read user_id unconditionally.
func NoAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", LocalUserID)
		c.Set("session_id", unknownSessionID)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// WebSocket clients cannot set headers from the browser, so the token can
	// ride in a query parameter on upgrade requests.
	return c.Query("token")
}
