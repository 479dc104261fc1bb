package models

import (
	"fmt"
	"time"
)

// PowerloadPoint is a single demand sample within a powerload series.
type PowerloadPoint struct {
	Time   time.Time `json:"time"`
	LoadKW float64   `json:"load_kw"`
}

// Powerload is a power-demand dataset. Its first and last points bound the
// window any analysis selection must fall inside.
type Powerload struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	StartDateTime time.Time        `json:"startdatetime"`
	EndDateTime   time.Time        `json:"enddatetime"`
	Points        []PowerloadPoint `json:"points,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Validate checks the structural invariants of an uploaded powerload.
func (p *Powerload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("powerload name is required")
	}
	if len(p.Points) < 2 {
		return fmt.Errorf("powerload requires at least 2 data points, got %d", len(p.Points))
	}
	step := p.Points[1].Time.Sub(p.Points[0].Time)
	for i := 1; i < len(p.Points); i++ {
		gap := p.Points[i].Time.Sub(p.Points[i-1].Time)
		if gap <= 0 {
			return fmt.Errorf("powerload points must be strictly increasing in time (point %d)", i)
		}
		if gap != step {
			return fmt.Errorf("powerload points must be evenly spaced: point %d is %s after the previous, expected %s", i, gap, step)
		}
	}
	return nil
}

// Span normalizes StartDateTime/EndDateTime from the point series.
func (p *Powerload) Span() (time.Time, time.Time) {
	if len(p.Points) == 0 {
		return p.StartDateTime, p.EndDateTime
	}
	return p.Points[0].Time, p.Points[len(p.Points)-1].Time
}

// PowerloadRequest is the create/update payload.
type PowerloadRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Points      []PowerloadPoint `json:"points" binding:"required"`
}
