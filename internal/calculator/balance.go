// Package calculator derives trip counts, charges and balances from ledger
// records. Every function is pure: same inputs, same outputs, no I/O.
package calculator

import (
	"sort"

	"carpool/internal/calendar"
	"carpool/internal/core"
)

// Balance is the result for one traveller.
type Balance struct {
	TotalTrips    int        `json:"totalTrips"`
	TotalCharge   core.Money `json:"totalCharge"`
	TotalPayments core.Money `json:"totalPayments"`
	TotalPending  core.Money `json:"totalPending"`
	Balance       core.Money `json:"balance"` // Positive = traveller owes, negative = overpaid
}

// Status labels the sign of a balance.
type Status string

const (
	StatusDue      Status = "due"
	StatusOverpaid Status = "overpaid"
	StatusSettled  Status = "settled"
)

// Status returns the label matching the balance sign.
func (b Balance) Status() Status {
	switch b.Balance.Sign() {
	case 1:
		return StatusDue
	case -1:
		return StatusOverpaid
	}
	return StatusSettled
}

// CalculateTravellerBalance computes trips, charge, payments and net balance
// for one traveller over dateRange.
//
// Algorithm:
// - Walk every day of the range; skip days the inclusion policy excludes
// - totalTrips = morning + evening legs ridden on included days
// - totalCharge = totalTrips * ratePerTrip
// - payments and pending are summed when their date parses and falls in range
// - balance = totalCharge + pending - payments
func CalculateTravellerBalance(
	travellerID string,
	dateRange core.DateRange,
	dailyData core.DailyData,
	ratePerTrip core.Money,
	cashPayments []core.CashPayment,
	otherPending []core.OtherPending,
	includeSaturday, includeSunday bool,
) Balance {
	trips := 0
	for _, day := range calendar.Days(dateRange) {
		key := core.DateKey(day)
		if !calendar.IsIncludedForCalculation(day, includeSaturday, includeSunday, key, dailyData) {
			continue
		}
		trips += dailyData.Trip(key, travellerID).Count()
	}

	charge := ratePerTrip.Times(int64(trips))
	payments := sumEntries(travellerID, dateRange, cashPayments)
	pending := sumEntries(travellerID, dateRange, otherPending)

	return Balance{
		TotalTrips:    trips,
		TotalCharge:   charge,
		TotalPayments: payments,
		TotalPending:  pending,
		Balance:       charge.Plus(pending).Minus(payments),
	}
}

// sumEntries adds the amounts of one traveller's entries dated inside r.
// Entries whose date does not parse are left out.
func sumEntries(travellerID string, r core.DateRange, entries []core.Entry) core.Money {
	total := core.Zero
	for _, e := range entries {
		if e.TravellerID != travellerID {
			continue
		}
		if inRange(r, e.Date) {
			total = total.Plus(e.Amount)
		}
	}
	return total
}

func inRange(r core.DateRange, date string) bool {
	d, ok := core.ParseDate(date)
	if !ok {
		return false
	}
	return r.Contains(d)
}

// TravellerBalance pairs a traveller with its balance.
type TravellerBalance struct {
	Traveller core.Traveller `json:"traveller"`
	Balance
	Status Status `json:"status"`
}

// Summary is the ledger-wide view of every traveller.
type Summary struct {
	Travellers    []TravellerBalance `json:"travellers"`
	TotalTrips    int                `json:"totalTrips"`
	TotalCharge   core.Money         `json:"totalCharge"`
	TotalPayments core.Money         `json:"totalPayments"`
	TotalDue      core.Money         `json:"totalDue"` // Sum of positive balances only
}

// AllBalances computes one balance per traveller of the snapshot, sorted by
// name, over the snapshot's own settings. Records pointing at removed
// travellers are ignored.
func AllBalances(s core.Snapshot) Summary {
	out := Summary{Travellers: make([]TravellerBalance, 0, len(s.Travellers))}
	for _, t := range s.Travellers {
		b := CalculateTravellerBalance(t.ID, s.DateRange, s.DailyData, s.RatePerTrip,
			s.CashPayments, s.OtherPending, s.IncludeSaturday, s.IncludeSunday)
		out.Travellers = append(out.Travellers, TravellerBalance{Traveller: t, Balance: b, Status: b.Status()})
		out.TotalTrips += b.TotalTrips
		out.TotalCharge = out.TotalCharge.Plus(b.TotalCharge)
		out.TotalPayments = out.TotalPayments.Plus(b.TotalPayments)
		if b.Balance.IsPositive() {
			out.TotalDue = out.TotalDue.Plus(b.Balance)
		}
	}
	sort.SliceStable(out.Travellers, func(i, j int) bool {
		return out.Travellers[i].Traveller.Name < out.Travellers[j].Traveller.Name
	})
	return out
}
