package compute

import "github.com/microgridplanner/planner-core/internal/models"

// defaultSizingLevels is how many candidate generator ratings the sweep tries
// when the request does not say.
const defaultSizingLevels = 10

// sizing sweeps candidate diesel ratings from half the load peak up to the
// peak and recommends the smallest rating whose dispatch leaves no unmet
// load. The recommended solar nameplate follows the fixed capacity fraction
// the dispatch assumes.
func (r *Runner) sizing(ts *timeSeries, numLevels int) (*models.ComputeResult, error) {
	if numLevels <= 0 {
		numLevels = defaultSizingLevels
	}

	lowKW := ts.peakKW * 0.5
	stepKW := (ts.peakKW - lowKW) / float64(numLevels)

	best := dispatchLoad(ts, ts.peakKW)
	recommendedKW := ts.peakKW
	for level := 0; level < numLevels; level++ {
		ratedKW := lowKW + stepKW*float64(level)
		candidate := dispatchLoad(ts, ratedKW)
		if candidate.UnmetLoadKWH == 0 {
			best = candidate
			recommendedKW = ratedKW
			break
		}
	}

	best.RecommendedRatingsKW = map[string]float64{
		componentDiesel: recommendedKW,
		componentSolar:  ts.peakKW * solarCapacityFraction,
	}
	return best, nil
}
