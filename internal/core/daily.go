package core

import "sort"

// Trip records which legs a traveller rode on one day.
type Trip struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
}

// Any reports whether at least one leg was ridden.
func (t Trip) Any() bool {
	return t.Morning || t.Evening
}

// Count returns the number of legs ridden.
func (t Trip) Count() int {
	n := 0
	if t.Morning {
		n++
	}
	if t.Evening {
		n++
	}
	return n
}

// With returns a copy of t with leg set to v.
func (t Trip) With(leg Leg, v bool) Trip {
	switch leg {
	case Morning:
		t.Morning = v
	case Evening:
		t.Evening = v
	}
	return t
}

// Get returns the value of one leg.
func (t Trip) Get(leg Leg) bool {
	if leg == Morning {
		return t.Morning
	}
	return t.Evening
}

// DailyData maps date key -> traveller id -> trip.
type DailyData map[string]map[string]Trip

// Clone returns a deep copy sharing no maps with d.
func (d DailyData) Clone() DailyData {
	out := make(DailyData, len(d))
	for date, cells := range d {
		cp := make(map[string]Trip, len(cells))
		for id, trip := range cells {
			cp[id] = trip
		}
		out[date] = cp
	}
	return out
}

// Trip returns the cell for a date and traveller, or the zero trip.
func (d DailyData) Trip(date, travellerID string) Trip {
	return d[date][travellerID]
}

// Set writes one cell, creating the date level on demand.
func (d DailyData) Set(date, travellerID string, trip Trip) {
	cells, ok := d[date]
	if !ok {
		cells = make(map[string]Trip)
		d[date] = cells
	}
	cells[travellerID] = trip
}

// HasTrips reports whether any traveller rode on date.
func (d DailyData) HasTrips(date string) bool {
	for _, trip := range d[date] {
		if trip.Any() {
			return true
		}
	}
	return false
}

// RemoveTraveller deletes a traveller from every date.
func (d DailyData) RemoveTraveller(travellerID string) {
	for _, cells := range d {
		delete(cells, travellerID)
	}
}

// Equal compares contents. A cell with no leg ridden is the same as a missing
// cell, and a date with no cells is the same as a missing date.
func (d DailyData) Equal(o DailyData) bool {
	return len(d.ChangedDates(o)) == 0
}

// ChangedDates returns the sorted date keys whose participation differs
// between d and o, using the same content rules as Equal.
func (d DailyData) ChangedDates(o DailyData) []string {
	var changed []string
	seen := make(map[string]struct{}, len(d)+len(o))
	check := func(date string) {
		if _, ok := seen[date]; ok {
			return
		}
		seen[date] = struct{}{}
		if !sameDay(d[date], o[date]) {
			changed = append(changed, date)
		}
	}
	for date := range d {
		check(date)
	}
	for date := range o {
		check(date)
	}
	sort.Strings(changed)
	return changed
}

func sameDay(a, b map[string]Trip) bool {
	for id, trip := range a {
		if b[id] != trip {
			return false
		}
	}
	for id, trip := range b {
		if a[id] != trip {
			return false
		}
	}
	return true
}

// Dates returns the sorted date keys.
func (d DailyData) Dates() []string {
	out := make([]string, 0, len(d))
	for date := range d {
		out = append(out, date)
	}
	sort.Strings(out)
	return out
}
