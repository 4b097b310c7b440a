package core

import (
	"strings"
	"time"
)

// DateKeyLayout is the layout of the keys of DailyData.
const DateKeyLayout = "2006-01-02"

// DateKey formats a calendar date as a DailyData key.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// DateOnly strips the clock from t, keeping its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a record date as a calendar date.
//
// Plain dates ("2025-03-14") and ISO datetimes ("2025-03-14T08:00:00Z") are
// accepted; for datetimes only the calendar part written in the string counts.
// The boolean is false for anything else.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateKeyLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if len(s) > len(DateKeyLayout) {
		if t, err := time.Parse(DateKeyLayout, s[:len(DateKeyLayout)]); err == nil && s[len(DateKeyLayout)] == 'T' {
			return t, true
		}
	}
	return time.Time{}, false
}
