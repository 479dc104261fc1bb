package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

var testSeriesStart = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newComputeFixture(t *testing.T) (*ComputeService, repo.Store) {
	t.Helper()
	store := repo.NewValkeyStore(cache.NewNoopValkeyCluster(), logger.New("error"), time.Hour, time.Hour)
	cfg := config.ComputeConfig{
		PollIntervalSeconds:  15,
		MaxConcurrent:        2,
		LockTTLSeconds:       5,
		DefaultNumRuns:       2,
		DefaultNumShiftHours: 12,
		DefaultNumLevels:     10,
	}
	svc := NewComputeService(store, cache.NewNoopValkeyCluster(), cfg, nil, nil, logger.New("error"))
	return svc, store
}

func seedPowerload(t *testing.T, store repo.Store, id, userID string, hours int) *models.Powerload {
	t.Helper()
	points := make([]models.PowerloadPoint, hours+1)
	for i := range points {
		points[i] = models.PowerloadPoint{
			Time:   testSeriesStart.Add(time.Duration(i) * time.Hour),
			LoadKW: 60,
		}
	}
	pl := &models.Powerload{
		ID:            id,
		UserID:        userID,
		Name:          "site load",
		StartDateTime: points[0].Time,
		EndDateTime:   points[len(points)-1].Time,
		Points:        points,
	}
	require.NoError(t, store.SavePowerload(context.Background(), pl))
	return pl
}

func stamp(t time.Time) string {
	return t.Format("01/02/2006 15:04")
}

func TestSubmitWaitRunsToCompletion(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)

	resp, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ComputeID)
	assert.False(t, resp.Duplicate)

	status, err := svc.Status(context.Background(), resp.ComputeID)
	require.NoError(t, err)
	require.NotNil(t, status.Success)
	assert.True(t, *status.Success)

	result, err := svc.Result(context.Background(), "u-1", resp.ComputeID)
	require.NoError(t, err)
	assert.Equal(t, models.ModelSimulate, result.ModelType)
	// 49 hourly samples at 60 kW, step-sum integrated.
	assert.InDelta(t, 49*60.0, result.TotalLoadKWH, 1e-6)
}

func TestSubmitRejectsUnknownModel(t *testing.T) {
	svc, _ := newComputeFixture(t)

	_, err := svc.Submit(context.Background(), "u-1", models.ModelType("forecast"), &models.ComputeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model type")
}

func TestSubmitRequiresOwnedPowerload(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 24)

	_, err := svc.Submit(context.Background(), "u-2", models.ModelSimulate, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDuplicateSubmissionReturnsExistingJob(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)
	req := &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	}

	first, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, req)
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ComputeID, second.ComputeID)

	// A different model over the same window is a different analysis.
	third, err := svc.Submit(context.Background(), "u-1", models.ModelSizing, req)
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
	assert.NotEqual(t, first.ComputeID, third.ComputeID)
}

func TestDuplicateDetectionCoversFullInputSet(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)

	for _, id := range []string{"d-1", "d-2"} {
		require.NoError(t, store.SaveDisturbance(context.Background(), &models.Disturbance{
			ID:         id,
			UserID:     "u-1",
			Components: map[string]float64{"feeder": 0.5},
		}))
	}
	require.NoError(t, store.SaveRepair(context.Background(), &models.Repair{
		ID:         "r-1",
		UserID:     "u-1",
		Components: map[string]float64{"feeder": 4},
	}))

	base := models.ComputeRequest{
		PowerloadID:              pl.ID,
		StartDateTime:            stamp(pl.StartDateTime),
		EndDateTime:              stamp(pl.EndDateTime),
		DisturbanceStartDateTime: stamp(pl.StartDateTime.Add(12 * time.Hour)),
		DisturbanceID:            "d-1",
		Wait:                     true,
	}

	first, err := svc.Submit(context.Background(), "u-1", models.ModelResilience, &base)
	require.NoError(t, err)

	// Identical inputs dedupe.
	again, err := svc.Submit(context.Background(), "u-1", models.ModelResilience, &base)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.ComputeID, again.ComputeID)

	// Same window, different disturbance document: a different analysis.
	otherDist := base
	otherDist.DisturbanceID = "d-2"
	resp, err := svc.Submit(context.Background(), "u-1", models.ModelResilience, &otherDist)
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)
	assert.NotEqual(t, first.ComputeID, resp.ComputeID)

	// Adding a repair schedule changes the analysis too.
	withRepair := base
	withRepair.RepairID = "r-1"
	resp, err = svc.Submit(context.Background(), "u-1", models.ModelResilience, &withRepair)
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)
	assert.NotEqual(t, first.ComputeID, resp.ComputeID)

	// So do the sampling parameters.
	moreRuns := base
	moreRuns.NumRuns = 7
	resp, err = svc.Submit(context.Background(), "u-1", models.ModelResilience, &moreRuns)
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)

	// An omitted parameter and its explicit default are the same analysis.
	explicitDefault := base
	explicitDefault.NumRuns = 2
	resp, err = svc.Submit(context.Background(), "u-1", models.ModelResilience, &explicitDefault)
	require.NoError(t, err)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, first.ComputeID, resp.ComputeID)
}

func TestSubmitClampsWindowToPowerloadBounds(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)

	resp, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime.Add(-6 * time.Hour)),
		EndDateTime:   stamp(pl.EndDateTime.Add(6 * time.Hour)),
		Wait:          true,
	})
	require.NoError(t, err)

	job, err := svc.Job(context.Background(), "u-1", resp.ComputeID)
	require.NoError(t, err)
	assert.True(t, job.StartDateTime.Equal(pl.StartDateTime), "start clamped to powerload start")
	assert.True(t, job.EndDateTime.Equal(pl.EndDateTime), "end clamped to powerload end")
}

func TestResilienceRequiresDisturbanceStart(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)

	_, err := svc.Submit(context.Background(), "u-1", models.ModelResilience, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disturbance start")
}

func TestAsyncSubmitReachesTerminalState(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 24)

	terminal := make(chan *models.ComputeJob, 1)
	svc.SetTerminalCallback(func(job *models.ComputeJob) { terminal <- job })

	resp, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ComputeJobID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	select {
	case job := <-terminal:
		require.NotNil(t, job.Success)
		assert.True(t, *job.Success)
		assert.Equal(t, resp.ComputeID, job.ID)
	default:
		t.Fatal("terminal callback never fired")
	}

	status, err := svc.Status(context.Background(), resp.ComputeID)
	require.NoError(t, err)
	require.NotNil(t, status.Success)
	assert.True(t, *status.Success)
}

func TestResultEnforcesOwnership(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 24)

	resp, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	})
	require.NoError(t, err)

	_, err = svc.Result(context.Background(), "u-2", resp.ComputeID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRemoveAllowsResubmission(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 24)
	req := &models.ComputeRequest{
		PowerloadID:   pl.ID,
		StartDateTime: stamp(pl.StartDateTime),
		EndDateTime:   stamp(pl.EndDateTime),
		Wait:          true,
	}

	first, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, req)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "u-1", first.ComputeID))
	_, err = svc.Job(context.Background(), "u-1", first.ComputeID)
	require.ErrorIs(t, err, repo.ErrNotFound)

	second, err := svc.Submit(context.Background(), "u-1", models.ModelSimulate, req)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.ComputeID, second.ComputeID)
}

func TestListJobsFiltersByModel(t *testing.T) {
	svc, store := newComputeFixture(t)
	pl := seedPowerload(t, store, "pl-1", "u-1", 48)

	for _, model := range []models.ModelType{models.ModelSimulate, models.ModelSizing} {
		_, err := svc.Submit(context.Background(), "u-1", model, &models.ComputeRequest{
			PowerloadID:   pl.ID,
			StartDateTime: stamp(pl.StartDateTime),
			EndDateTime:   stamp(pl.EndDateTime),
			Wait:          true,
		})
		require.NoError(t, err)
	}

	all, err := svc.ListJobs(context.Background(), "u-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sizing, err := svc.ListJobs(context.Background(), "u-1", models.ModelSizing)
	require.NoError(t, err)
	require.Len(t, sizing, 1)
	assert.Equal(t, models.ModelSizing, sizing[0].ModelType)
}
