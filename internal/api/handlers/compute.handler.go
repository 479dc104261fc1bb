package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/services"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// ComputeHandler exposes the submit/poll workflow: one submit route per model
// type, a status route the UI polls on a fixed interval, and result
// management.
type ComputeHandler struct {
	compute *services.ComputeService
	logger  logger.Logger
}

func NewComputeHandler(compute *services.ComputeService, logger logger.Logger) *ComputeHandler {
	return &ComputeHandler{compute: compute, logger: logger}
}

func modelFromParam(c *gin.Context) (models.ModelType, bool) {
	model := models.ModelType(c.Param("model"))
	if !model.Valid() {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "unknown model type: " + c.Param("model"),
		})
		return "", false
	}
	return model, true
}

// POST /api/v1/:model/compute - submit a run. Fire-and-forget submissions get
// 202 plus the compute id to poll; wait=true runs inline and returns 200.
// Resubmitting identical inputs returns the existing id with duplicate=true.
func (h *ComputeHandler) Submit(c *gin.Context) {
	model, ok := modelFromParam(c)
	if !ok {
		return
	}

	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	resp, err := h.compute.Submit(c.Request.Context(), c.GetString("user_id"), model, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusAccepted
	if req.Wait || resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"status":                "success",
		"data":                  resp,
		"poll_interval_seconds": int(h.compute.PollInterval().Seconds()),
	})
}

// GET /api/v1/compute/status/:id - the poll payload. success is null while
// the run is still going, then true or false.
func (h *ComputeHandler) Status(c *gin.Context) {
	job, err := h.compute.Job(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.ComputeStatusResponse{
		ComputeID: job.ID,
		Success:   job.Success,
		Error:     job.Error,
	})
}

// GET /api/v1/:model/results - list the user's jobs for one model type.
func (h *ComputeHandler) ListResults(c *gin.Context) {
	model, ok := modelFromParam(c)
	if !ok {
		return
	}

	jobs, err := h.compute.ListJobs(c.Request.Context(), c.GetString("user_id"), model)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "jobs": jobs, "count": len(jobs)})
}

// GET /api/v1/:model/results/:id - the result document of a finished run.
func (h *ComputeHandler) GetResult(c *gin.Context) {
	if _, ok := modelFromParam(c); !ok {
		return
	}

	result, err := h.compute.Result(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

// DELETE /api/v1/:model/results/:id - remove a job and free its inputs for
// resubmission.
func (h *ComputeHandler) RemoveResult(c *gin.Context) {
	if _, ok := modelFromParam(c); !ok {
		return
	}

	if err := h.compute.Remove(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
