package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/pkg/cache"
)

// Anonymous principal for unauthenticated requests.
const anonymousUserID = "anonymous"

// The default limit is generous: the UI polls compute status every 15
// seconds per open job, so real users sit far below this.
const maxRequestsPerMinute = int64(config.DefaultRateLimit)

// RateLimiter implements per-user rate limiting over 1-minute windows backed
// by the Valkey cluster, so the limit holds across replicas.
func RateLimiter(valkeyCache cache.ValkeyCluster) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			userID = anonymousUserID
		}

		window := time.Now().Unix() / 60
		key := fmt.Sprintf("rate_limit:%s:%d", userID, window)

		// Atomic INCR keeps the count exact under concurrent requests and
		// across replicas. The TTL outlives the window so late stragglers
		// still see the counter.
		count, err := valkeyCache.Increment(c.Request.Context(), key, 2*time.Minute)
		if err != nil {
			// A broken cache should not take the API down with it.
			c.Next()
			return
		}

		c.Header("X-Rate-Limit-Limit", strconv.FormatInt(maxRequestsPerMinute, 10))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt((window+1)*60, 10))

		if count > maxRequestsPerMinute {
			c.Header("X-Rate-Limit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Header("X-Rate-Limit-Remaining", strconv.FormatInt(maxRequestsPerMinute-count, 10))
		c.Next()
	}
}
