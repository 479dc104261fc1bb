package compute

import (
	"fmt"
	"math"
	"time"

	"github.com/microgridplanner/planner-core/internal/models"
)

// defaultOutageHours applies when no repair document accompanies the
// disturbance.
const defaultOutageHours = 4.0

// resilience replays the dispatch under a component outage, shifting the
// outage start across runs to sample different parts of the load shape. A run
// survives when the degraded system leaves no load unmet for the whole
// outage.
func (r *Runner) resilience(ts *timeSeries, dist *models.Disturbance, rep *models.Repair, job *models.ComputeJob) (*models.ComputeResult, error) {
	if job.DisturbanceStartDateTime == nil {
		return nil, fmt.Errorf("resilience run %s: no disturbance start selected", job.ID)
	}

	runs := job.NumRuns
	if runs <= 0 {
		runs = 1
	}
	shift := time.Duration(job.NumShiftHours) * time.Hour
	outage := time.Duration(outageHours(rep) * (1 + job.ExtendTimeframe) * float64(time.Hour))

	// Severity is the worst failure fraction across the selected components:
	// that share of the generator rating is offline until repair completes.
	severity := 0.0
	for _, f := range dist.Components {
		severity = math.Max(severity, f)
	}

	baseline := dispatchLoad(ts, ts.peakKW*genRatingFraction)

	survived := 0
	for run := 0; run < runs; run++ {
		outageStart := job.DisturbanceStartDateTime.Add(shift * time.Duration(run))
		if r.survivesOutage(ts, outageStart, outage, severity) {
			survived++
		}
	}

	baseline.RunsSurvived = survived
	baseline.RunsTotal = runs
	baseline.SurvivalRate = float64(survived) / float64(runs)
	return baseline, nil
}

// survivesOutage re-dispatches the samples inside [start, start+duration)
// with the generator derated by severity.
func (r *Runner) survivesOutage(ts *timeSeries, start time.Time, duration time.Duration, severity float64) bool {
	end := start.Add(duration)
	deratedKW := ts.peakKW * genRatingFraction * (1 - severity)

	for _, p := range ts.points {
		if p.Time.Before(start) || !p.Time.Before(end) {
			continue
		}
		solarKW := math.Min(p.LoadKW, solarOutputKW(ts.peakKW, p.Time.Hour()))
		if p.LoadKW-solarKW > deratedKW {
			return false
		}
	}
	return true
}

// outageHours is the longest component repair time, or the default when the
// run has no repair document.
func outageHours(rep *models.Repair) float64 {
	if rep == nil || len(rep.Components) == 0 {
		return defaultOutageHours
	}
	longest := 0.0
	for _, hours := range rep.Components {
		longest = math.Max(longest, hours)
	}
	return longest
}
