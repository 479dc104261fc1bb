package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/internal/window"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

type PowerloadHandler struct {
	store          repo.Store
	logger         logger.Logger
	maxUploadBytes int64
}

func NewPowerloadHandler(store repo.Store, logger logger.Logger, maxUploadBytes int64) *PowerloadHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &PowerloadHandler{store: store, logger: logger, maxUploadBytes: maxUploadBytes}
}

// POST /api/v1/powerloads
func (h *PowerloadHandler) Create(c *gin.Context) {
	var req models.PowerloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	pl := &models.Powerload{
		ID:          uuid.New().String(),
		UserID:      c.GetString("user_id"),
		Name:        req.Name,
		Description: req.Description,
		Points:      req.Points,
		CreatedAt:   time.Now().UTC(),
	}
	pl.StartDateTime, pl.EndDateTime = pl.Span()

	if err := pl.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if err := h.store.SavePowerload(c.Request.Context(), pl); err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("powerload created", "id", pl.ID, "user_id", pl.UserID, "points", len(pl.Points))
	c.JSON(http.StatusCreated, gin.H{"status": "success", "powerload": pl})
}

// POST /api/v1/powerloads/upload - CSV body or multipart "file" field.
// Rows are "MM/DD/YYYY HH:mm,<kW>"; a header row is skipped automatically.
func (h *PowerloadHandler) Upload(c *gin.Context) {
	reader, name, err := h.uploadReader(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	points, err := parsePowerloadCSV(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	if q := c.Query("name"); q != "" {
		name = q
	}
	pl := &models.Powerload{
		ID:          uuid.New().String(),
		UserID:      c.GetString("user_id"),
		Name:        name,
		Description: c.Query("description"),
		Points:      points,
		CreatedAt:   time.Now().UTC(),
	}
	pl.StartDateTime, pl.EndDateTime = pl.Span()

	if err := pl.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if err := h.store.SavePowerload(c.Request.Context(), pl); err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("powerload uploaded", "id", pl.ID, "user_id", pl.UserID, "points", len(pl.Points))
	c.JSON(http.StatusCreated, gin.H{"status": "success", "powerload": pl})
}

func (h *PowerloadHandler) uploadReader(c *gin.Context) (io.Reader, string, error) {
	if file, header, err := c.Request.FormFile("file"); err == nil {
		if header.Size > h.maxUploadBytes {
			_ = file.Close()
			return nil, "", fmt.Errorf("upload exceeds the %d byte limit", h.maxUploadBytes)
		}
		return file, strings.TrimSuffix(header.Filename, ".csv"), nil
	}
	// Raw CSV body
	return io.LimitReader(c.Request.Body, h.maxUploadBytes), "uploaded powerload", nil
}

func parsePowerloadCSV(r io.Reader) ([]models.PowerloadPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []models.PowerloadPoint
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d is malformed: %w", row, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("csv row %d: expected datetime and load columns", row)
		}

		loadKW, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if row == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("csv row %d: invalid load value %q", row, record[1])
		}

		ts, err := parsePointTime(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		points = append(points, models.PowerloadPoint{Time: ts, LoadKW: loadKW})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("csv contains no data rows")
	}
	return points, nil
}

// parsePointTime accepts the UI's "MM/DD/YYYY HH:mm" stamps plus RFC 3339 for
// programmatic uploads.
func parsePointTime(s string) (time.Time, error) {
	if t, err := window.ParseStamp(s); err == nil && !t.IsZero() {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// GET /api/v1/powerloads
func (h *PowerloadHandler) List(c *gin.Context) {
	powerloads, err := h.store.ListPowerloads(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "powerloads": powerloads, "count": len(powerloads)})
}

// GET /api/v1/powerloads/:id
func (h *PowerloadHandler) Get(c *gin.Context) {
	pl, err := h.store.GetPowerload(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "powerload": pl})
}

// PUT /api/v1/powerloads/:id - rename only; data points are immutable.
func (h *PowerloadHandler) Update(c *gin.Context) {
	var req models.NameDescriptionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	pl, err := h.store.GetPowerload(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	pl.Name = req.Name
	pl.Description = req.Description
	if err := h.store.SavePowerload(c.Request.Context(), pl); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "powerload": pl})
}

// DELETE /api/v1/powerloads/:id
func (h *PowerloadHandler) Delete(c *gin.Context) {
	if err := h.store.DeletePowerload(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GET /api/v1/powerloads/:id/window - the valid analysis range plus default
// picker bounds a fresh form should open with.
func (h *PowerloadHandler) Window(c *gin.Context) {
	pl, err := h.store.GetPowerload(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	w, err := window.New(pl.StartDateTime, pl.EndDateTime)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"window": w,
		"bounds": w.Bounds(window.Selection{Start: w.Min, End: w.Max}),
	})
}

// windowValidateRequest is a candidate selection in the UI's string format.
type windowValidateRequest struct {
	StartDateTime            string `json:"startdatetime" binding:"required"`
	EndDateTime              string `json:"enddatetime" binding:"required"`
	DisturbanceStartDateTime string `json:"disturbance_startdatetime,omitempty"`
	LastChanged              string `json:"last_changed,omitempty"`
}

// POST /api/v1/powerloads/:id/window/validate - runs the correction engine
// over the submitted selection and returns the corrected values, the applied
// corrections and the recomputed per-field picker bounds.
func (h *PowerloadHandler) ValidateWindow(c *gin.Context) {
	var req windowValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	pl, err := h.store.GetPowerload(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	w, err := window.New(pl.StartDateTime, pl.EndDateTime)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "error": err.Error()})
		return
	}

	sel, err := parseSelection(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	corrected, corrections, err := w.Correct(sel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	resp := gin.H{
		"status":        "success",
		"startdatetime": window.FormatStamp(corrected.Start),
		"enddatetime":   window.FormatStamp(corrected.End),
		"corrections":   corrections,
		"bounds":        w.Bounds(corrected),
		"window":        w,
	}
	if corrected.Disturbance != nil {
		resp["disturbance_startdatetime"] = window.FormatStamp(*corrected.Disturbance)
	}
	c.JSON(http.StatusOK, resp)
}

func parseSelection(req windowValidateRequest) (window.Selection, error) {
	start, err := window.ParseStamp(req.StartDateTime)
	if err != nil {
		return window.Selection{}, err
	}
	end, err := window.ParseStamp(req.EndDateTime)
	if err != nil {
		return window.Selection{}, err
	}

	sel := window.Selection{
		Start:       start,
		End:         end,
		LastChanged: window.Field(req.LastChanged),
	}
	if req.DisturbanceStartDateTime != "" {
		dist, err := window.ParseStamp(req.DisturbanceStartDateTime)
		if err != nil {
			return window.Selection{}, err
		}
		sel.Disturbance = &dist
	}
	return sel, nil
}
