package window

import (
	"testing"
	"time"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		clock   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "date and time",
			date:  "06/15/2024",
			clock: "08:30",
			want:  time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "date only yields midnight",
			date: "06/15/2024",
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "blank time yields midnight",
			date:  "01/02/2024",
			clock: "  ",
			want:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "empty date yields zero time",
			date:  "",
			clock: "08:30",
			want:  time.Time{},
		},
		{
			name:    "malformed date",
			date:    "2024-06-15",
			clock:   "08:30",
			wantErr: true,
		},
		{
			name:    "malformed time",
			date:    "06/15/2024",
			clock:   "8am",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.date, tt.clock)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateTime: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStamp(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "full stamp",
			in:   "06/15/2024 08:30",
			want: time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "date only yields midnight",
			in:   "06/15/2024",
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "empty yields zero time",
			in:   "",
			want: time.Time{},
		},
		{
			name: "whitespace yields zero time",
			in:   "   ",
			want: time.Time{},
		},
		{
			name:    "iso stamp rejected",
			in:      "2024-06-15T08:30:00Z",
			wantErr: true,
		},
		{
			name:    "garbage time component",
			in:      "06/15/2024 8am",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStamp(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStamp: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatStampRoundTrip(t *testing.T) {
	want := time.Date(2025, 3, 7, 4, 5, 0, 0, time.UTC)
	stamp := FormatStamp(want)
	if stamp != "03/07/2025 04:05" {
		t.Errorf("FormatStamp = %q", stamp)
	}
	got, err := ParseStamp(stamp)
	if err != nil {
		t.Fatalf("round trip parse: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("round trip: got %v, want %v", got, want)
	}
}

func TestFormatZeroPadding(t *testing.T) {
	ts := time.Date(2024, 3, 7, 4, 5, 6, 0, time.UTC)
	if got := FormatDate(ts); got != "03/07/2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatTime(ts, false); got != "04:05" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatTime(ts, true); got != "04:05:06" {
		t.Errorf("FormatTime with seconds = %q", got)
	}
}

// Formatting then parsing any minute-precision instant must round-trip.
func TestParseFormatRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(1999, 2, 28, 12, 1, 0, 0, time.UTC),
		time.Date(2030, 7, 4, 9, 45, 0, 0, time.UTC),
	}
	for _, want := range instants {
		got, err := ParseDateTime(FormatDate(want), FormatTime(want, false))
		if err != nil {
			t.Fatalf("round trip parse: %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip: got %v, want %v", got, want)
		}
	}
}

func TestNormalizeDropsSeconds(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 45, 123456, time.UTC)
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	if got := Normalize(ts); !got.Equal(want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}
