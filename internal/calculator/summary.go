package calculator

import (
	"sort"

	"carpool/internal/calendar"
	"carpool/internal/core"
)

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// ExpenseTotals is the car spend within a range.
type ExpenseTotals struct {
	Total      core.Money       `json:"total"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// ExpenseSummary totals car expenses dated inside r, per category.
// Categories are listed by descending amount, then name.
func ExpenseSummary(expenses []core.CarExpense, r core.DateRange) ExpenseTotals {
	byCat := map[string]core.Money{}
	total := core.Zero
	for _, e := range expenses {
		if !inRange(r, e.Date) {
			continue
		}
		byCat[e.Category] = byCat[e.Category].Plus(e.Amount)
		total = total.Plus(e.Amount)
	}
	list := make([]CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		list = append(list, CategoryAmount{Category: name, Amount: amt})
	}
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Amount.Cmp(list[j].Amount.Decimal); c != 0 {
			return c > 0
		}
		return list[i].Category < list[j].Category
	})
	return ExpenseTotals{Total: total, ByCategory: list}
}

// Position compares what the carpool brought in with what the car cost.
type Position struct {
	TripPayments      core.Money `json:"tripPayments"`
	CoTravellerIncome core.Money `json:"coTravellerIncome"`
	CarExpenses       core.Money `json:"carExpenses"`
	Net               core.Money `json:"net"`
}

// IncomeSummary computes the carpool position over the snapshot's range:
// payments from every traveller plus co-traveller income, minus car expenses.
func IncomeSummary(s core.Snapshot) Position {
	var p Position
	for _, pay := range s.CashPayments {
		if inRange(s.DateRange, pay.Date) {
			p.TripPayments = p.TripPayments.Plus(pay.Amount)
		}
	}
	for _, inc := range s.CoTravellerIncomes {
		if inRange(s.DateRange, inc.Date) {
			p.CoTravellerIncome = p.CoTravellerIncome.Plus(inc.Amount)
		}
	}
	p.CarExpenses = ExpenseSummary(s.CarExpenses, s.DateRange).Total
	p.Net = p.TripPayments.Plus(p.CoTravellerIncome).Minus(p.CarExpenses)
	return p
}

// HistoryDay is one counted day of a traveller's trip history.
type HistoryDay struct {
	Date string    `json:"date"`
	Trip core.Trip `json:"trip"`
}

// TripHistory lists the days of r on which the traveller rode, restricted to
// days the inclusion policy counts.
func TripHistory(travellerID string, r core.DateRange, dailyData core.DailyData, includeSaturday, includeSunday bool) []HistoryDay {
	var out []HistoryDay
	for _, day := range calendar.Days(r) {
		key := core.DateKey(day)
		if !calendar.IsIncludedForCalculation(day, includeSaturday, includeSunday, key, dailyData) {
			continue
		}
		trip := dailyData.Trip(key, travellerID)
		if trip.Any() {
			out = append(out, HistoryDay{Date: key, Trip: trip})
		}
	}
	return out
}
