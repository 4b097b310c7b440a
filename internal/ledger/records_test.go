package ledger

import (
	"testing"

	"carpool/internal/core"
)

func TestTravellerLifecycle(t *testing.T) {
	s := newTestStore(t, nil)

	if _, err := s.AddTraveller("   "); err != core.ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	a, _ := s.AddTraveller("Alice")
	b, _ := s.AddTraveller("Bob")
	if a.ID == b.ID {
		t.Fatal("ids must be unique")
	}

	if err := s.RenameTraveller(a.ID, "Alicia"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetPersistedState().FindTraveller(a.ID); got.Name != "Alicia" {
		t.Errorf("rename failed: %+v", got)
	}

	_ = s.UpdateTravellerTrip("2025-03-10", a.ID, true, false)
	_ = s.UpdateTravellerTrip("2025-03-10", b.ID, true, false)
	_ = s.ToggleDraftTrip("2025-03-11", a.ID, core.Evening)
	_, _ = s.AddCashPayment(core.CashPayment{TravellerID: a.ID, Amount: core.NewMoney(10), Date: "2025-03-10"})

	if err := s.RemoveTraveller(a.ID); err != nil {
		t.Fatal(err)
	}
	snap := s.GetPersistedState()
	if _, ok := snap.DailyData["2025-03-10"][a.ID]; ok {
		t.Error("removed traveller still in committed participation")
	}
	if _, ok := s.Draft()["2025-03-11"][a.ID]; ok {
		t.Error("removed traveller still in draft participation")
	}
	if len(snap.CashPayments) != 1 {
		t.Error("payments of a removed traveller must be kept")
	}
	if err := s.RemoveTraveller(a.ID); err != core.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEntryCRUD(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")
	rev := s.Revision()

	p, err := s.AddCashPayment(core.CashPayment{TravellerID: a.ID, Amount: core.NewMoney(10), Date: "2025-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if s.Revision() != rev+1 {
		t.Error("add should advance revision")
	}

	p.Amount = core.NewMoney(12)
	p.Note = "rounded up"
	if err := s.UpdateCashPayment(p); err != nil {
		t.Fatal(err)
	}
	got := s.GetPersistedState().CashPayments[0]
	if !got.Amount.Same(core.NewMoney(12)) || got.Note != "rounded up" {
		t.Errorf("update not applied: %+v", got)
	}

	if err := s.RemoveCashPayment(p.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveCashPayment(p.ID); err != core.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.AddOtherPending(core.OtherPending{TravellerID: a.ID, Amount: core.Zero, Date: "2025-03-10"}); err != core.ErrInvalidAmount {
		t.Errorf("zero amount should be rejected, got %v", err)
	}
	op, _ := s.AddOtherPending(core.OtherPending{TravellerID: a.ID, Amount: core.NewMoney(7), Date: "2025-03-10"})
	op.Date = "not a date"
	if err := s.UpdateOtherPending(op); err != core.ErrInvalidDate {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if err := s.RemoveOtherPending(op.ID); err != nil {
		t.Error(err)
	}
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t, nil)
	rev := s.Revision()

	err := s.UpdateCarExpense(core.CarExpense{ID: "missing", Category: "Fuel", Amount: core.NewMoney(1), Date: "2025-03-10"})
	if err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.Revision() != rev {
		t.Error("failed mutation advanced revision")
	}
}

func TestCarExpenseAndIncomeCRUD(t *testing.T) {
	s := newTestStore(t, nil)

	e, err := s.AddCarExpense(core.CarExpense{Category: " Fuel ", Amount: core.NewMoney(50), Date: "2025-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Category != "Fuel" {
		t.Errorf("category not trimmed: %q", e.Category)
	}
	e.Amount = core.NewMoney(55)
	if err := s.UpdateCarExpense(e); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveCarExpense(e.ID); err != nil {
		t.Fatal(err)
	}

	i, err := s.AddCoTravellerIncome(core.CoTravellerIncome{Amount: core.NewMoney(8), Date: "2025-03-12"})
	if err != nil {
		t.Fatal(err)
	}
	i.Note = "neighbour"
	if err := s.UpdateCoTravellerIncome(i); err != nil {
		t.Fatal(err)
	}
	if got := s.GetPersistedState().CoTravellerIncomes[0].Note; got != "neighbour" {
		t.Errorf("note = %q", got)
	}
	if err := s.RemoveCoTravellerIncome(i.ID); err != nil {
		t.Fatal(err)
	}
}

func TestSettings(t *testing.T) {
	local := newMapStore()
	s := newTestStore(t, local)

	if err := s.SetRatePerTrip(core.NewMoney(50)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetIncludeWeekends(true, false); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDateRange(core.DateRange{Start: "2025-03-31", End: "2025-03-01"}); err != core.ErrInvalidRange {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	st := s.Settings()
	if !st.RatePerTrip.Same(core.NewMoney(50)) || !st.IncludeSaturday || st.IncludeSunday {
		t.Errorf("unexpected settings %+v", st)
	}

	sat := fixedNow.AddDate(0, 0, -2)
	sun := fixedNow.AddDate(0, 0, -1)
	if !s.IsEditable(sat) || s.IsEditable(sun) {
		t.Error("editability should follow the weekend toggles")
	}

	if err := s.SetAutoToll(core.AutoToll{Enabled: true, Amount: core.NewMoney(2)}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAutoToll(core.AutoToll{Enabled: true}); err != core.ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	reloaded := newTestStore(t, local)
	if at := reloaded.AutoToll(); !at.Enabled || !at.Amount.Same(core.NewMoney(2)) {
		t.Errorf("auto toll not persisted: %+v", at)
	}
}

func TestNegativeRateRejected(t *testing.T) {
	s := newTestStore(t, nil)
	if err := s.SetRatePerTrip(core.Money{Decimal: core.NewMoney(5).Neg()}); err != core.ErrNegativeRate {
		t.Errorf("expected ErrNegativeRate, got %v", err)
	}
}
