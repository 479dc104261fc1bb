package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// DisturbanceHandler owns the resilience scenario inputs: disturbances
// (which components fail, how severely) and repairs (time to bring each
// back), both scoped to the authenticated user.
type DisturbanceHandler struct {
	store  repo.Store
	logger logger.Logger
}

func NewDisturbanceHandler(store repo.Store, logger logger.Logger) *DisturbanceHandler {
	return &DisturbanceHandler{store: store, logger: logger}
}

// POST /api/v1/resilience/disturbances
func (h *DisturbanceHandler) CreateDisturbance(c *gin.Context) {
	var req models.DisturbanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	d := &models.Disturbance{
		ID:          uuid.New().String(),
		UserID:      c.GetString("user_id"),
		GridID:      req.GridID,
		Name:        req.Name,
		Description: req.Description,
		Components:  req.Components,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.SaveDisturbance(c.Request.Context(), d); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "disturbance": d})
}

// GET /api/v1/resilience/disturbances
func (h *DisturbanceHandler) ListDisturbances(c *gin.Context) {
	disturbances, err := h.store.ListDisturbances(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "disturbances": disturbances, "count": len(disturbances)})
}

// GET /api/v1/resilience/disturbances/:id
func (h *DisturbanceHandler) GetDisturbance(c *gin.Context) {
	d, err := h.store.GetDisturbance(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "disturbance": d})
}

// PUT /api/v1/resilience/disturbances/:id
func (h *DisturbanceHandler) UpdateDisturbance(c *gin.Context) {
	var req models.NameDescriptionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	d, err := h.store.GetDisturbance(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	d.Name = req.Name
	d.Description = req.Description
	if err := h.store.SaveDisturbance(c.Request.Context(), d); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "disturbance": d})
}

// DELETE /api/v1/resilience/disturbances/:id
func (h *DisturbanceHandler) DeleteDisturbance(c *gin.Context) {
	if err := h.store.DeleteDisturbance(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// POST /api/v1/resilience/repairs
func (h *DisturbanceHandler) CreateRepair(c *gin.Context) {
	var req models.DisturbanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	r := &models.Repair{
		ID:          uuid.New().String(),
		UserID:      c.GetString("user_id"),
		GridID:      req.GridID,
		Name:        req.Name,
		Description: req.Description,
		Components:  req.Components,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.SaveRepair(c.Request.Context(), r); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "repair": r})
}

// GET /api/v1/resilience/repairs
func (h *DisturbanceHandler) ListRepairs(c *gin.Context) {
	repairs, err := h.store.ListRepairs(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "repairs": repairs, "count": len(repairs)})
}

// GET /api/v1/resilience/repairs/:id
func (h *DisturbanceHandler) GetRepair(c *gin.Context) {
	r, err := h.store.GetRepair(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "repair": r})
}

// PUT /api/v1/resilience/repairs/:id
func (h *DisturbanceHandler) UpdateRepair(c *gin.Context) {
	var req models.NameDescriptionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	r, err := h.store.GetRepair(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	r.Name = req.Name
	r.Description = req.Description
	if err := h.store.SaveRepair(c.Request.Context(), r); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "repair": r})
}

// DELETE /api/v1/resilience/repairs/:id
func (h *DisturbanceHandler) DeleteRepair(c *gin.Context) {
	if err := h.store.DeleteRepair(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
