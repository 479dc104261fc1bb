package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

type HealthHandler struct {
	cache  cache.ValkeyCluster
	logger logger.Logger
}

func NewHealthHandler(c cache.ValkeyCluster, logger logger.Logger) *HealthHandler {
	return &HealthHandler{cache: c, logger: logger}
}

// GET /health - quick liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   config.ServiceName,
		"version":   config.ServiceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - readiness depends on Valkey availability
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := http.StatusOK
	resp := gin.H{
		"service":   config.ServiceName,
		"version":   config.ServiceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if err := h.cache.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		resp["error"] = err.Error()
		h.logger.Warn("readiness check failed", "error", err)
	}

	resp["status"] = status
	c.JSON(httpStatus, resp)
}
