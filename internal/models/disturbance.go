package models

import "time"

// Disturbance describes a simulated disruption: which grid components fail
// and how severely, keyed by component id.
type Disturbance struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	GridID      string             `json:"gridId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Components  map[string]float64 `json:"components"` // component id -> failure fraction [0,1]
	CreatedAt   time.Time          `json:"created_at"`
}

// Repair describes how failed components come back: time to repair per
// component id, in hours.
type Repair struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	GridID      string             `json:"gridId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Components  map[string]float64 `json:"components"` // component id -> repair hours
	CreatedAt   time.Time          `json:"created_at"`
}

// DisturbanceRequest is the create payload shared by disturbances and repairs.
type DisturbanceRequest struct {
	GridID      string             `json:"gridId" binding:"required"`
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Components  map[string]float64 `json:"selectedComponents"`
}

// NameDescriptionUpdate is the shared rename payload.
type NameDescriptionUpdate struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
