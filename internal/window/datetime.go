package window

import (
	"fmt"
	"strings"
	"time"
)

// Layouts for the two string representations the planner UI exchanges:
// separate date ("MM/DD/YYYY") and time ("HH:mm") widget values.
const (
	DateLayout        = "01/02/2006"
	TimeLayout        = "15:04"
	TimeLayoutSeconds = "15:04:05"
)

// ParseDateTime converts a date string plus an optional time string into an
// instant. An empty date string yields the zero time with no error, because
// an unfilled widget is an expected state, not a failure; callers must check
// IsZero before using the result. A date with an empty time string yields
// midnight of that date.
func ParseDateTime(dateStr, timeStr string) (time.Time, error) {
	if strings.TrimSpace(dateStr) == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	if strings.TrimSpace(timeStr) == "" {
		return d, nil
	}
	t, err := time.Parse(TimeLayout, strings.TrimSpace(timeStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", timeStr, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// ParseStamp converts a combined "MM/DD/YYYY HH:mm" submission value into an
// instant. Like ParseDateTime, an empty string yields the zero time with no
// error.
func ParseStamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	dateStr, timeStr, _ := strings.Cut(s, " ")
	return ParseDateTime(dateStr, timeStr)
}

// FormatStamp renders an instant as the combined "MM/DD/YYYY HH:mm" form.
func FormatStamp(t time.Time) string {
	return t.Format(DateLayout + " " + TimeLayout)
}

// FormatDate renders an instant's date as MM/DD/YYYY, zero-padded.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTime renders an instant's clock time as HH:mm, or HH:mm:ss when
// withSeconds is set. Always zero-padded.
func FormatTime(t time.Time, withSeconds bool) string {
	if withSeconds {
		return t.Format(TimeLayoutSeconds)
	}
	return t.Format(TimeLayout)
}

// Normalize zeroes seconds and sub-second precision. Every comparison and
// correction in this package operates at minute precision.
func Normalize(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
