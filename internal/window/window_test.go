package window

import (
	"testing"
	"time"
)

func mustWindow(t *testing.T, min, max time.Time) TimeWindow {
	t.Helper()
	w, err := New(min, max)
	if err != nil {
		t.Fatalf("New(%v, %v): %v", min, max, err)
	}
	return w
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func TestMinutesGapBreakpoints(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		duration   time.Duration
		gap        int
		degenerate bool
	}{
		{"sub-minute", 30 * time.Second, 1, true},
		{"one minute", 1 * time.Minute, 1, false},
		{"four minutes", 4 * time.Minute, 1, false},
		{"five minutes", 5 * time.Minute, 5, false},
		{"nine minutes", 9 * time.Minute, 5, false},
		{"ten minutes", 10 * time.Minute, 10, false},
		{"fourteen minutes", 14 * time.Minute, 10, false},
		{"fifteen minutes", 15 * time.Minute, 15, false},
		{"twenty minutes", 20 * time.Minute, 15, false},
		{"twenty-nine minutes", 29 * time.Minute, 15, false},
		{"thirty minutes", 30 * time.Minute, 30, false},
		{"one day", 24 * time.Hour, 30, false},
		{"one year", 365 * 24 * time.Hour, 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(base, base.Add(tt.duration))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if w.MinutesGap != tt.gap {
				t.Errorf("MinutesGap = %d, want %d", w.MinutesGap, tt.gap)
			}
			if w.Degenerate != tt.degenerate {
				t.Errorf("Degenerate = %v, want %v", w.Degenerate, tt.degenerate)
			}
		})
	}
}

// The gap must be a non-decreasing step function of window duration.
func TestMinutesGapMonotonic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 0
	for minutes := 1; minutes <= 120; minutes++ {
		w, err := New(base, base.Add(time.Duration(minutes)*time.Minute))
		if err != nil {
			t.Fatalf("New at %d minutes: %v", minutes, err)
		}
		if w.MinutesGap < prev {
			t.Fatalf("gap decreased at %d minutes: %d -> %d", minutes, prev, w.MinutesGap)
		}
		prev = w.MinutesGap
	}
}

func TestNewRejectsInvalidWindows(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := New(base, base); err == nil {
		t.Error("expected error for single-instant window")
	}
	if _, err := New(base.Add(time.Hour), base); err == nil {
		t.Error("expected error for inverted window")
	}
	if _, err := New(time.Time{}, base); err == nil {
		t.Error("expected error for zero min")
	}
}

func TestShiftEndpoint(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := ShiftEndpoint(base, 30); !got.Equal(base.Add(30 * time.Minute)) {
		t.Errorf("forward shift = %v", got)
	}
	if got := ShiftEndpoint(base, -15); !got.Equal(base.Add(-15 * time.Minute)) {
		t.Errorf("backward shift = %v", got)
	}
}

func TestBoundsConstrainOpposingFields(t *testing.T) {
	w := mustWindow(t, at(t, "2024-01-01 00:00"), at(t, "2024-01-02 00:00"))
	sel := Selection{
		Start: at(t, "2024-01-01 08:00"),
		End:   at(t, "2024-01-01 18:00"),
	}
	b := w.Bounds(sel)

	wantStartMax := at(t, "2024-01-01 17:30") // end - 30m gap
	if !b.Start.MaxDate.Equal(wantStartMax) {
		t.Errorf("start max date = %v, want %v", b.Start.MaxDate, wantStartMax)
	}
	if !b.Start.MinDate.Equal(w.Min) {
		t.Errorf("start min date = %v, want window min", b.Start.MinDate)
	}
	wantEndMin := at(t, "2024-01-01 08:30") // start + 30m gap
	if !b.End.MinDate.Equal(wantEndMin) {
		t.Errorf("end min date = %v, want %v", b.End.MinDate, wantEndMin)
	}
	if !b.End.MaxDate.Equal(w.Max) {
		t.Errorf("end max date = %v, want window max", b.End.MaxDate)
	}

	// Start on the window's first day: clock floor engages. Same-day
	// start/end: clock ceiling engages.
	if b.Start.MinTime != "00:00" {
		t.Errorf("start min time = %q, want 00:00", b.Start.MinTime)
	}
	if b.Start.MaxTime != "17:30" {
		t.Errorf("start max time = %q, want 17:30", b.Start.MaxTime)
	}
	if b.End.MinTime != "08:30" {
		t.Errorf("end min time = %q, want 08:30", b.End.MinTime)
	}
	if b.Disturbance != nil {
		t.Error("expected no disturbance bounds without a disturbance instant")
	}
}

func TestBoundsDisturbanceField(t *testing.T) {
	w := mustWindow(t, at(t, "2024-01-01 00:00"), at(t, "2024-01-03 00:00"))
	dist := at(t, "2024-01-01 12:00")
	sel := Selection{
		Start:       at(t, "2024-01-01 06:00"),
		End:         at(t, "2024-01-02 06:00"),
		Disturbance: &dist,
	}
	b := w.Bounds(sel)
	if b.Disturbance == nil {
		t.Fatal("expected disturbance bounds")
	}
	if !b.Disturbance.MinDate.Equal(sel.Start) {
		t.Errorf("disturbance min date = %v, want selection start", b.Disturbance.MinDate)
	}
	wantMax := at(t, "2024-01-02 05:30")
	if !b.Disturbance.MaxDate.Equal(wantMax) {
		t.Errorf("disturbance max date = %v, want %v", b.Disturbance.MaxDate, wantMax)
	}
	// Disturbance on the start's day: floor at the start's clock time.
	if b.Disturbance.MinTime != "06:00" {
		t.Errorf("disturbance min time = %q, want 06:00", b.Disturbance.MinTime)
	}
}

func TestContains(t *testing.T) {
	w := mustWindow(t, at(t, "2024-01-01 00:00"), at(t, "2024-01-02 00:00"))
	if !w.Contains(at(t, "2024-01-01 12:00")) {
		t.Error("midpoint should be contained")
	}
	if !w.Contains(w.Min) || !w.Contains(w.Max) {
		t.Error("bounds are inclusive")
	}
	if w.Contains(at(t, "2024-01-02 00:01")) {
		t.Error("instant past max should not be contained")
	}
}
