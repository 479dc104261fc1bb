package window

import (
	"fmt"
	"time"
)

// TimeWindow is the fixed valid range a powerload's data covers, plus the
// derived minimum start-to-end gap any selection inside it must keep.
type TimeWindow struct {
	Min        time.Time `json:"min"`
	Max        time.Time `json:"max"`
	MinutesGap int       `json:"minutes_gap"`

	// Degenerate is set when the window spans less than one minute. The
	// window is still usable (gap floors at 1) so the form never deadlocks,
	// but callers should surface an advisory to the user.
	Degenerate bool `json:"degenerate,omitempty"`
}

// ValidationError reports a structurally invalid window.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("window validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// New builds a TimeWindow over [min, max], normalized to minute precision,
// with the gap derived from the total span. A single-instant or inverted
// window is rejected; a sub-minute window is accepted but flagged Degenerate.
func New(min, max time.Time) (TimeWindow, error) {
	if min.IsZero() || max.IsZero() {
		return TimeWindow{}, ValidationError{Field: "min/max", Value: nil, Message: "window bounds cannot be zero"}
	}
	if !min.Before(max) {
		return TimeWindow{}, ValidationError{
			Field:   "min/max",
			Value:   fmt.Sprintf("min=%v, max=%v", min, max),
			Message: "window start must be before window end",
		}
	}
	w := TimeWindow{Min: Normalize(min), Max: Normalize(max)}
	w.MinutesGap, w.Degenerate = minutesGap(max.Sub(min))
	return w, nil
}

// minutesGap discretizes the window's total duration into the minimum
// permissible start-to-end separation. First matching breakpoint wins.
// A sub-minute window still gets a floor gap of 1 so downstream correction
// has a value to work with; the degenerate flag carries the warning.
func minutesGap(d time.Duration) (gap int, degenerate bool) {
	minutes := d.Minutes()
	switch {
	case minutes < 1:
		return 1, true
	case minutes < 5:
		return 1, false
	case minutes < 10:
		return 5, false
	case minutes < 15:
		return 10, false
	case minutes < 30:
		return 15, false
	default:
		return 30, false
	}
}

// Gap returns the minimum separation as a duration.
func (w TimeWindow) Gap() time.Duration {
	return time.Duration(w.MinutesGap) * time.Minute
}

// ShiftEndpoint returns t shifted by the given number of minutes; pass a
// negative count to shift backward. Used to compute the latest allowable
// start (Max − gap) and the earliest allowable end (Min + gap).
func ShiftEndpoint(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// LatestStart is the latest instant a selection may start: Max − gap.
func (w TimeWindow) LatestStart() time.Time {
	return ShiftEndpoint(w.Max, -w.MinutesGap)
}

// EarliestEnd is the earliest instant a selection may end: Min + gap.
func (w TimeWindow) EarliestEnd() time.Time {
	return ShiftEndpoint(w.Min, w.MinutesGap)
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w TimeWindow) Contains(t time.Time) bool {
	n := Normalize(t)
	return !n.Before(w.Min) && !n.After(w.Max)
}

// FieldBounds is the selectable range for one date/time widget pair. MinTime
// and MaxTime are HH:mm strings and empty when the clock time is
// unconstrained (the widget falls back to its own defaults).
type FieldBounds struct {
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
	MinTime string    `json:"min_time,omitempty"`
	MaxTime string    `json:"max_time,omitempty"`
}

// SelectionBounds carries per-field widget constraints derived from the
// window and the opposing field's current value.
type SelectionBounds struct {
	Start       FieldBounds  `json:"start"`
	End         FieldBounds  `json:"end"`
	Disturbance *FieldBounds `json:"disturbance,omitempty"`
}

// Bounds derives widget range constraints so that a start can never be picked
// past end − gap and vice versa. It is a pure function of (window, selection,
// gap) and must be recomputed after every correction pass. The clock-time
// constraints only engage when the relevant dates coincide: a start on the
// same calendar day as the end is capped at the shifted end's clock time,
// but on an earlier day any clock time is fine.
func (w TimeWindow) Bounds(sel Selection) SelectionBounds {
	start := Normalize(sel.Start)
	end := Normalize(sel.End)
	shiftedEnd := ShiftEndpoint(end, -w.MinutesGap)
	shiftedStart := ShiftEndpoint(start, w.MinutesGap)

	startBounds := FieldBounds{MinDate: w.Min, MaxDate: shiftedEnd}
	if sameDate(start, w.Min) {
		startBounds.MinTime = FormatTime(w.Min, false)
	}
	if sameDate(start, end) {
		startBounds.MaxTime = FormatTime(shiftedEnd, false)
	}

	endBounds := FieldBounds{MinDate: shiftedStart, MaxDate: w.Max}
	if sameDate(end, start) {
		endBounds.MinTime = FormatTime(shiftedStart, false)
	}
	if sameDate(end, w.Max) {
		endBounds.MaxTime = FormatTime(w.Max, false)
	}

	bounds := SelectionBounds{Start: startBounds, End: endBounds}

	if sel.Disturbance != nil {
		dist := Normalize(*sel.Disturbance)
		db := FieldBounds{MinDate: start, MaxDate: shiftedEnd}
		if sameDate(dist, start) {
			db.MinTime = FormatTime(start, false)
		}
		if sameDate(dist, end) {
			db.MaxTime = FormatTime(shiftedEnd, false)
		}
		bounds.Disturbance = &db
	}

	return bounds
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
