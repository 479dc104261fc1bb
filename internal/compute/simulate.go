package compute

import (
	"math"

	"github.com/microgridplanner/planner-core/internal/models"
)

// Generation constants shared by the simulate and resilience models. The
// diesel figures are for a standby genset running on ULSD; wet stacking is
// counted below 30% of the nameplate rating.
const (
	dieselKWHPerGallon    = 13.5
	co2PoundsPerGallon    = 22.4
	wetStackingFraction   = 0.30
	solarCapacityFraction = 0.30
)

// genRatingFraction sizes the standby generator relative to the series peak.
// Running below peak makes unmet load visible in the outputs instead of
// silently covering everything.
const genRatingFraction = 0.85

const (
	componentDiesel = "DieselGenerator"
	componentSolar  = "SolarPhotovoltaicPanel"
)

// simulate dispatches the load across a solar array and a diesel genset and
// accumulates the operating statistics the results page charts.
func (r *Runner) simulate(ts *timeSeries) (*models.ComputeResult, error) {
	ratedKW := ts.peakKW * genRatingFraction
	return dispatchLoad(ts, ratedKW), nil
}

// dispatchLoad runs the merit-order dispatch: solar first, diesel up to
// ratedKW, anything left is unmet.
func dispatchLoad(ts *timeSeries, ratedKW float64) *models.ComputeResult {
	res := &models.ComputeResult{
		ComponentEnergyKWH: map[string]float64{
			componentDiesel: 0,
			componentSolar:  0,
		},
	}

	for _, p := range ts.points {
		res.TotalLoadKWH += p.LoadKW * ts.stepHours

		solarKW := math.Min(p.LoadKW, solarOutputKW(ts.peakKW, p.Time.Hour()))
		remaining := p.LoadKW - solarKW

		dieselKW := math.Min(remaining, ratedKW)
		remaining -= dieselKW

		res.ComponentEnergyKWH[componentSolar] += solarKW * ts.stepHours
		res.ComponentEnergyKWH[componentDiesel] += dieselKW * ts.stepHours

		if remaining > 0 {
			res.UnmetLoadKWH += remaining * ts.stepHours
			res.UnmetPowerHours += ts.stepHours
		}
		if dieselKW > 0 && ratedKW > 0 && dieselKW < ratedKW*wetStackingFraction {
			res.WetStackingHours += ts.stepHours
		}
	}

	res.DieselGallons = res.ComponentEnergyKWH[componentDiesel] / dieselKWHPerGallon
	res.CO2Pounds = res.DieselGallons * co2PoundsPerGallon
	if res.TotalLoadKWH > 0 {
		res.RenewableFraction = res.ComponentEnergyKWH[componentSolar] / res.TotalLoadKWH
	}
	return res
}

// solarOutputKW models the array as a half-sine over 06:00-18:00 with a
// nameplate sized as a fraction of the load peak. Deterministic on purpose:
// repeat runs over the same window must agree.
func solarOutputKW(peakLoadKW float64, hour int) float64 {
	if hour < 6 || hour >= 18 {
		return 0
	}
	irradiance := math.Sin(math.Pi * float64(hour-6) / 12.0)
	return peakLoadKW * solarCapacityFraction * irradiance
}
