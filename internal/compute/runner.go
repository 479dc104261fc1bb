package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// Runner executes a compute job over a stored powerload series and produces
// the result document the UI renders. It is purely computational; persistence
// and job state transitions live in the compute service.
type Runner struct {
	logger logger.Logger
}

func NewRunner(log logger.Logger) *Runner {
	return &Runner{logger: log}
}

// Run dispatches on the job's model type. The disturbance and repair inputs
// are only consulted by the resilience model and may be nil otherwise.
func (r *Runner) Run(ctx context.Context, job *models.ComputeJob, pl *models.Powerload, dist *models.Disturbance, rep *models.Repair) (*models.ComputeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series, err := sliceSeries(pl, job.StartDateTime, job.EndDateTime)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var result *models.ComputeResult
	switch job.ModelType {
	case models.ModelSimulate:
		result, err = r.simulate(series)
	case models.ModelSizing:
		result, err = r.sizing(series, job.NumLevels)
	case models.ModelResilience:
		if dist == nil {
			return nil, fmt.Errorf("resilience run %s: no disturbance selected", job.ID)
		}
		result, err = r.resilience(series, dist, rep, job)
	default:
		return nil, fmt.Errorf("unknown model type %q", job.ModelType)
	}
	if err != nil {
		return nil, err
	}

	result.ComputeID = job.ID
	result.ModelType = job.ModelType
	result.PowerloadID = job.PowerloadID
	result.ComputedAt = time.Now().UTC()

	r.logger.Info("compute run finished",
		"compute_id", job.ID,
		"model", job.ModelType,
		"points", len(series.points),
		"duration", time.Since(started))
	return result, nil
}

// timeSeries is a powerload restricted to the job's analysis window, with the
// sample spacing pre-computed so the models integrate in O(n).
type timeSeries struct {
	points    []models.PowerloadPoint
	stepHours float64
	peakKW    float64
}

func sliceSeries(pl *models.Powerload, start, end time.Time) (*timeSeries, error) {
	if err := pl.Validate(); err != nil {
		return nil, fmt.Errorf("powerload %s: %w", pl.ID, err)
	}

	var pts []models.PowerloadPoint
	for _, p := range pl.Points {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("powerload %s: fewer than two samples inside the analysis window", pl.ID)
	}

	ts := &timeSeries{
		points:    pts,
		stepHours: pts[1].Time.Sub(pts[0].Time).Hours(),
	}
	for _, p := range pts {
		if p.LoadKW > ts.peakKW {
			ts.peakKW = p.LoadKW
		}
	}
	if ts.stepHours <= 0 {
		return nil, fmt.Errorf("powerload %s: non-increasing sample times", pl.ID)
	}
	return ts, nil
}

// totalEnergyKWH integrates the series with a step sum, matching the sample
// spacing the upload validator enforces.
func (ts *timeSeries) totalEnergyKWH() float64 {
	var sum float64
	for _, p := range ts.points {
		sum += p.LoadKW * ts.stepHours
	}
	return sum
}
