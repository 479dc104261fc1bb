package models

import (
	"fmt"
	"time"
)

// ModelType selects which analysis model a compute job runs.
type ModelType string

const (
	ModelSimulate   ModelType = "simulate"
	ModelSizing     ModelType = "sizing"
	ModelResilience ModelType = "resilience"
)

// Valid reports whether t names a known analysis model.
func (t ModelType) Valid() bool {
	switch t {
	case ModelSimulate, ModelSizing, ModelResilience:
		return true
	}
	return false
}

// ComputeRequest is the submit payload for all three model types. Disturbance
// fields are only honored for resilience runs.
type ComputeRequest struct {
	PowerloadID   string `json:"powerloadId" binding:"required"`
	GridID        string `json:"gridId"`
	LocationID    string `json:"locationId"`
	StartDateTime string `json:"startdatetime" binding:"required"` // "MM/DD/YYYY HH:mm"
	EndDateTime   string `json:"enddatetime" binding:"required"`

	DisturbanceStartDateTime string `json:"disturbance_startdatetime,omitempty"`
	DisturbanceID            string `json:"disturbanceId,omitempty"`
	RepairID                 string `json:"repairId,omitempty"`

	ExtendTimeframe float64 `json:"extendTimeframe,omitempty"`
	NumRuns         int     `json:"numRuns,omitempty"`
	NumShiftHours   int     `json:"numShiftHours,omitempty"`
	NumLevels       int     `json:"numLevels,omitempty"`
	Method          string  `json:"method,omitempty"`

	// Wait selects run-and-wait (true) vs fire-and-forget submission.
	Wait bool `json:"wait,omitempty"`
}

// ComputeJob is the persisted state of one analysis run.
//
// Success is the status trichotomy the UI polls on: nil while the run is in
// progress, then true or false once it reaches a terminal state.
type ComputeJob struct {
	ID          string    `json:"compute_id"`
	UserID      string    `json:"user_id"`
	ModelType   ModelType `json:"model_type"`
	PowerloadID string    `json:"powerloadId"`
	GridID      string    `json:"gridId,omitempty"`
	LocationID  string    `json:"locationId,omitempty"`

	StartDateTime            time.Time  `json:"startdatetime"`
	EndDateTime              time.Time  `json:"enddatetime"`
	DisturbanceStartDateTime *time.Time `json:"disturbance_startdatetime,omitempty"`
	DisturbanceID            string     `json:"disturbanceId,omitempty"`
	RepairID                 string     `json:"repairId,omitempty"`

	ExtendTimeframe float64 `json:"extendTimeframe,omitempty"`
	NumRuns         int     `json:"numRuns,omitempty"`
	NumShiftHours   int     `json:"numShiftHours,omitempty"`
	NumLevels       int     `json:"numLevels,omitempty"`
	Method          string  `json:"method,omitempty"`

	Success     *bool      `json:"success"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result *ComputeResult `json:"result,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *ComputeJob) Terminal() bool { return j.Success != nil }

// ComputeResult carries the summary statistics of a finished run.
type ComputeResult struct {
	ComputeID   string    `json:"compute_id"`
	ModelType   ModelType `json:"model_type"`
	PowerloadID string    `json:"powerloadId"`
	ComputedAt  time.Time `json:"computed_at"`

	TotalLoadKWH       float64            `json:"total_load_kwh"`
	UnmetLoadKWH       float64            `json:"unmet_load_kwh"`
	UnmetPowerHours    float64            `json:"unmet_power_hours"`
	DieselGallons      float64            `json:"diesel_gallons"`
	CO2Pounds          float64            `json:"co2_pounds"`
	WetStackingHours   float64            `json:"wet_stacking_hours"`
	RenewableFraction  float64            `json:"renewable_fraction"`
	ComponentEnergyKWH map[string]float64 `json:"component_energy_kwh,omitempty"`

	// Sizing-only: recommended ratings per component type.
	RecommendedRatingsKW map[string]float64 `json:"recommended_ratings_kw,omitempty"`

	// Resilience-only: per-run outage survival statistics.
	RunsSurvived int     `json:"runs_survived,omitempty"`
	RunsTotal    int     `json:"runs_total,omitempty"`
	SurvivalRate float64 `json:"survival_rate,omitempty"`
}

// ComputeStatusResponse is the poll payload: success stays null until the job
// reaches a terminal state.
type ComputeStatusResponse struct {
	ComputeID string `json:"compute_id"`
	Success   *bool  `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ComputeSubmitResponse mirrors the two submit flavors: run-and-wait returns
// compute_id for polling, fire-and-forget additionally reports the queued job
// id; a duplicate submission returns the existing compute_id and Duplicate=true.
type ComputeSubmitResponse struct {
	ComputeID    string `json:"compute_id"`
	ComputeJobID string `json:"compute_job_id,omitempty"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// JobKey identifies the inputs that make two submissions "the same analysis"
// for duplicate detection. Every input that changes the run's outcome is
// part of the key: two resilience runs over the same window but different
// disturbance or repair documents are different analyses.
func (r *ComputeRequest) JobKey(userID string, model ModelType) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s:%s:%s:%g:%d:%d:%d:%s",
		userID, model, r.PowerloadID, r.GridID,
		r.StartDateTime, r.EndDateTime, r.DisturbanceStartDateTime,
		r.DisturbanceID, r.RepairID,
		r.ExtendTimeframe, r.NumRuns, r.NumShiftHours, r.NumLevels, r.Method)
}
