package ledger

import (
	"reflect"
	"testing"

	"carpool/internal/core"
)

func TestToggleDraftTripLeavesCommittedUntouched(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")

	if err := s.ToggleDraftTrip("2025-03-10", a.ID, core.Morning); err != nil {
		t.Fatalf("ToggleDraftTrip: %v", err)
	}
	if s.GetPersistedState().DailyData.Trip("2025-03-10", a.ID).Morning {
		t.Fatal("toggle leaked into committed state")
	}
	if !s.HasDraftChanges() {
		t.Fatal("expected draft changes")
	}

	s.SaveDraftDailyData()
	if s.HasDraftChanges() {
		t.Error("no draft changes expected after save")
	}
	if !s.GetPersistedState().DailyData.Trip("2025-03-10", a.ID).Morning {
		t.Error("save did not commit the toggle")
	}

	// Draft and committed must not share maps after save.
	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Morning)
	if !s.GetPersistedState().DailyData.Trip("2025-03-10", a.ID).Morning {
		t.Error("draft edit after save changed committed state")
	}
}

func TestToggleDraftTripValidation(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")

	tests := []struct {
		name string
		date string
		id   string
		leg  core.Leg
		want error
	}{
		{"bad date", "tomorrow", a.ID, core.Morning, core.ErrInvalidDate},
		{"bad leg", "2025-03-10", a.ID, core.Leg("noon"), core.ErrInvalidLeg},
		{"unknown traveller", "2025-03-10", "ghost", core.Evening, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.ToggleDraftTrip(tt.date, tt.id, tt.leg); err != tt.want {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestToggleBackAndForthIsNotAChange(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")

	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Evening)
	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Evening)
	if s.HasDraftChanges() {
		t.Error("an all-false cell should compare equal to a missing one")
	}
}

func TestSetDraftTripsForAllTravellers(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")
	b, _ := s.AddTraveller("Bob")

	if err := s.SetDraftTripsForAllTravellers("2025-03-11T07:30:00Z", true, false); err != nil {
		t.Fatal(err)
	}
	draft := s.Draft()
	for _, id := range []string{a.ID, b.ID} {
		if got := draft.Trip("2025-03-11", id); got != (core.Trip{Morning: true}) {
			t.Errorf("traveller %s: got %+v", id, got)
		}
	}
}

func TestDiscardDraftDailyData(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")
	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Morning)

	s.DiscardDraftDailyData()
	if s.HasDraftChanges() {
		t.Error("discard should drop draft edits")
	}
}

func TestSaveDraftAddsAutoToll(t *testing.T) {
	s := newTestStore(t, nil, WithAutoToll(core.AutoToll{Enabled: true, Amount: core.NewMoney(2.5)}))
	a, _ := s.AddTraveller("Alice")
	_, _ = s.AddCarExpense(core.CarExpense{Category: "toll", Amount: core.NewMoney(4), Date: "2025-03-11"})

	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Morning)
	_ = s.ToggleDraftTrip("2025-03-11", a.ID, core.Morning)
	changed := s.SaveDraftDailyData()

	if want := []string{"2025-03-10", "2025-03-11"}; !reflect.DeepEqual(changed, want) {
		t.Fatalf("changed dates = %v, want %v", changed, want)
	}
	var tolls []core.CarExpense
	for _, e := range s.GetPersistedState().CarExpenses {
		if e.Category == core.TollCategory {
			tolls = append(tolls, e)
		}
	}
	if len(tolls) != 1 || tolls[0].Date != "2025-03-10" || !tolls[0].Amount.Same(core.NewMoney(2.5)) {
		t.Errorf("unexpected auto tolls: %+v", tolls)
	}

	// Saving again without changes adds nothing.
	s.SaveDraftDailyData()
	if got := len(s.GetPersistedState().CarExpenses); got != 2 {
		t.Errorf("expected 2 expenses, got %d", got)
	}
}

func TestSaveDraftWithoutAutoToll(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")
	_ = s.ToggleDraftTrip("2025-03-10", a.ID, core.Morning)
	s.SaveDraftDailyData()

	if got := len(s.GetPersistedState().CarExpenses); got != 0 {
		t.Errorf("auto toll disabled, got %d expenses", got)
	}
}

func TestUpdateTravellerTripWritesBoth(t *testing.T) {
	s := newTestStore(t, nil)
	a, _ := s.AddTraveller("Alice")
	rev := s.Revision()

	if err := s.UpdateTravellerTrip("2025-03-10", a.ID, true, true); err != nil {
		t.Fatal(err)
	}
	want := core.Trip{Morning: true, Evening: true}
	if got := s.GetPersistedState().DailyData.Trip("2025-03-10", a.ID); got != want {
		t.Errorf("committed = %+v", got)
	}
	if got := s.Draft().Trip("2025-03-10", a.ID); got != want {
		t.Errorf("draft = %+v", got)
	}
	if s.Revision() != rev+1 {
		t.Error("direct write should advance revision")
	}
	if err := s.UpdateTravellerTrip("2025-03-10", "ghost", true, true); err != core.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
