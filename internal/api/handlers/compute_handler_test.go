package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microgridplanner/planner-core/internal/api/middleware"
	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/internal/services"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

func newComputeRouter(t *testing.T) (*gin.Engine, repo.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error")
	store := repo.NewValkeyStore(cache.NewNoopValkeyCluster(), log, time.Hour, time.Hour)
	compute := services.NewComputeService(store, cache.NewNoopValkeyCluster(), config.ComputeConfig{
		PollIntervalSeconds:  15,
		MaxConcurrent:        2,
		LockTTLSeconds:       5,
		DefaultNumRuns:       2,
		DefaultNumShiftHours: 12,
		DefaultNumLevels:     10,
	}, nil, nil, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = compute.Shutdown(ctx)
	})
	h := NewComputeHandler(compute, log)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", testUserID); c.Next() })
	r.Use(middleware.ErrorHandler(log))
	r.POST("/:model/compute", h.Submit)
	r.GET("/:model/results", h.ListResults)
	r.GET("/:model/results/:id", h.GetResult)
	r.DELETE("/:model/results/:id", h.RemoveResult)
	r.GET("/compute/status/:id", h.Status)
	return r, store
}

func seedHandlerPowerload(t *testing.T, store repo.Store) *models.Powerload {
	t.Helper()
	pl := &models.Powerload{
		ID:     uuid.New().String(),
		UserID: testUserID,
		Name:   "handler test load",
		Points: hourlyPoints(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 48, 60),
	}
	pl.StartDateTime, pl.EndDateTime = pl.Span()
	require.NoError(t, store.SavePowerload(context.Background(), pl))
	return pl
}

func submitBody(powerloadID string, wait bool) string {
	b, _ := json.Marshal(models.ComputeRequest{
		PowerloadID:   powerloadID,
		StartDateTime: "03/10/2025 00:00",
		EndDateTime:   "03/12/2025 00:00",
		Wait:          wait,
	})
	return string(b)
}

func TestComputeSubmitWaitReturnsResult(t *testing.T) {
	r, store := newComputeRouter(t)
	pl := seedHandlerPowerload(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/simulate/compute", strings.NewReader(submitBody(pl.ID, true)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ComputeID string `json:"compute_id"`
		} `json:"data"`
		PollIntervalSeconds int `json:"poll_interval_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ComputeID)
	assert.Equal(t, 15, resp.PollIntervalSeconds)

	// A finished run reports success=true on the poll route.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/compute/status/"+resp.Data.ComputeID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status models.ComputeStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.NotNil(t, status.Success)
	assert.True(t, *status.Success)
}

func TestComputeSubmitAsyncReturns202(t *testing.T) {
	r, store := newComputeRouter(t)
	pl := seedHandlerPowerload(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/simulate/compute", strings.NewReader(submitBody(pl.ID, false)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestComputeSubmitUnknownModelIs404(t *testing.T) {
	r, _ := newComputeRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/forecast/compute", strings.NewReader(submitBody("pl-1", true)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown model type")
}

func TestComputeStatusUnknownJobIs404(t *testing.T) {
	r, _ := newComputeRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/compute/status/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComputeResultsListAndFetch(t *testing.T) {
	r, store := newComputeRouter(t)
	pl := seedHandlerPowerload(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/simulate/compute", strings.NewReader(submitBody(pl.ID, true)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var submitted struct {
		Data struct {
			ComputeID string `json:"compute_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/simulate/results", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Jobs  []models.ComputeJob `json:"jobs"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, submitted.Data.ComputeID, list.Jobs[0].ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/simulate/results/"+submitted.Data.ComputeID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var fetched struct {
		Result models.ComputeResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, submitted.Data.ComputeID, fetched.Result.ComputeID)
	assert.Greater(t, fetched.Result.TotalLoadKWH, 0.0)
}

func TestComputeRemoveResult(t *testing.T) {
	r, store := newComputeRouter(t)
	pl := seedHandlerPowerload(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/simulate/compute", strings.NewReader(submitBody(pl.ID, true)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var submitted struct {
		Data struct {
			ComputeID string `json:"compute_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/simulate/results/"+submitted.Data.ComputeID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/simulate/results/"+submitted.Data.ComputeID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
