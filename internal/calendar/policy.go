// Package calendar decides which days count toward trip totals and which
// days can still be edited.
package calendar

import (
	"time"

	"carpool/internal/core"
)

// IsIncluded reports whether a day is open for new edits: weekdays always,
// weekend days only when their toggle is on.
func IsIncluded(date time.Time, includeSaturday, includeSunday bool) bool {
	switch date.Weekday() {
	case time.Saturday:
		return includeSaturday
	case time.Sunday:
		return includeSunday
	}
	return true
}

// IsIncludedForCalculation reports whether a day counts toward totals.
//
// A weekend day counts when its toggle is on, or when dailyData already holds
// at least one ridden leg for dateKey. Recorded trips are never dropped from
// totals by switching a toggle off later.
func IsIncludedForCalculation(date time.Time, includeSaturday, includeSunday bool, dateKey string, dailyData core.DailyData) bool {
	if IsIncluded(date, includeSaturday, includeSunday) {
		return true
	}
	return dailyData.HasTrips(dateKey)
}

// Days returns every calendar day of r, inclusive. An invalid range yields no days.
func Days(r core.DateRange) []time.Time {
	start, ok := core.ParseDate(r.Start)
	if !ok {
		return nil
	}
	end, ok := core.ParseDate(r.End)
	if !ok || end.Before(start) {
		return nil
	}
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
