package calculator

import (
	"testing"

	"carpool/internal/core"
)

func TestExpenseSummary(t *testing.T) {
	expenses := []core.CarExpense{
		{ID: "e1", Date: "2025-03-02", Category: "Fuel", Amount: money(40)},
		{ID: "e2", Date: "2025-03-03", Category: "Toll", Amount: money(3.5)},
		{ID: "e3", Date: "2025-03-04", Category: "Toll", Amount: money(3.5)},
		{ID: "e4", Date: "2025-04-01", Category: "Fuel", Amount: money(60)},
		{ID: "e5", Date: "??", Category: "Parking", Amount: money(2)},
	}
	got := ExpenseSummary(expenses, march)
	if !got.Total.Same(money(47)) {
		t.Fatalf("Total = %s, want 47", got.Total)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].Category != "Fuel" || !got.ByCategory[1].Amount.Same(money(7)) {
		t.Fatalf("unexpected categories %+v", got.ByCategory)
	}
}

func TestIncomeSummary(t *testing.T) {
	s := core.EmptySnapshot(core.Settings{DateRange: march})
	s.CashPayments = []core.CashPayment{{ID: "p1", TravellerID: "a", Amount: money(30), Date: "2025-03-10"}}
	s.CoTravellerIncomes = []core.CoTravellerIncome{{ID: "i1", Amount: money(15), Date: "2025-03-11"}}
	s.CarExpenses = []core.CarExpense{{ID: "e1", Category: "Fuel", Amount: money(50), Date: "2025-03-12"}}

	p := IncomeSummary(s)
	if !p.Net.Same(money(-5)) {
		t.Fatalf("Net = %s, want -5", p.Net)
	}
}

func TestTripHistory(t *testing.T) {
	daily := core.DailyData{
		"2025-03-03": {"T": {Morning: true}},
		"2025-03-04": {"T": {}},
		"2025-03-09": {"T": {Evening: true}},
	}
	got := TripHistory("T", march, daily, false, false)
	if len(got) != 2 || got[0].Date != "2025-03-03" || got[1].Date != "2025-03-09" {
		t.Fatalf("unexpected history %+v", got)
	}
}
