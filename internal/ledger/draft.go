package ledger

import (
	"strings"

	"carpool/internal/core"
	"carpool/internal/log"
)

// normalizeDate turns a date or datetime string into a DailyData key.
func normalizeDate(date string) (string, error) {
	d, ok := core.ParseDate(date)
	if !ok {
		return "", core.ErrInvalidDate
	}
	return core.DateKey(d), nil
}

// Draft returns a copy of the draft participation.
func (s *Store) Draft() core.DailyData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// HasDraftChanges reports whether the draft differs in content from the
// committed participation.
func (s *Store) HasDraftChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.draft.Equal(s.committed.DailyData)
}

// ToggleDraftTrip flips one leg in the draft. Committed data is not touched.
func (s *Store) ToggleDraftTrip(date, travellerID string, leg core.Leg) error {
	key, err := normalizeDate(date)
	if err != nil {
		return err
	}
	if leg != core.Morning && leg != core.Evening {
		return core.ErrInvalidLeg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.committed.FindTraveller(travellerID); !ok {
		return core.ErrNotFound
	}
	trip := s.draft.Trip(key, travellerID)
	s.draft.Set(key, travellerID, trip.With(leg, !trip.Get(leg)))
	return nil
}

// SetDraftTripsForAllTravellers sets both legs of every current traveller on
// one date in the draft.
func (s *Store) SetDraftTripsForAllTravellers(date string, morning, evening bool) error {
	key, err := normalizeDate(date)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.committed.Travellers {
		s.draft.Set(key, t.ID, core.Trip{Morning: morning, Evening: evening})
	}
	return nil
}

// DiscardDraftDailyData resets the draft to the committed participation.
func (s *Store) DiscardDraftDailyData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.committed.DailyData.Clone()
}

// SaveDraftDailyData commits the draft and returns the dates whose
// participation changed.
//
// When auto-toll is enabled, every changed date without a toll expense gets
// one at the configured amount.
func (s *Store) SaveDraftDailyData() []string {
	var changed []string
	_ = s.commit(SourceUserEdit, func(t *tx) error {
		changed = t.draft.ChangedDates(t.snap.DailyData)
		t.snap.DailyData = t.draft.Clone()

		if !s.autoToll.Enabled || s.autoToll.Amount.Validate() != nil {
			return nil
		}
		for _, date := range changed {
			if hasToll(t.snap.CarExpenses, date) {
				continue
			}
			t.snap.CarExpenses = append(t.snap.CarExpenses, core.CarExpense{
				ID:       s.newID(),
				Date:     date,
				Category: core.TollCategory,
				Amount:   s.autoToll.Amount,
			})
			s.logger.Info("Auto toll added", log.FieldDate, date, log.FieldAmount, s.autoToll.Amount.Format())
		}
		return nil
	})
	return changed
}

func hasToll(expenses []core.CarExpense, date string) bool {
	for _, e := range expenses {
		if !strings.EqualFold(e.Category, core.TollCategory) {
			continue
		}
		if d, ok := core.ParseDate(e.Date); ok && core.DateKey(d) == date {
			return true
		}
	}
	return false
}

// UpdateTravellerTrip writes one cell to both committed and draft,
// bypassing the draft and save flow.
func (s *Store) UpdateTravellerTrip(date, travellerID string, morning, evening bool) error {
	key, err := normalizeDate(date)
	if err != nil {
		return err
	}
	return s.commit(SourceUserEdit, func(t *tx) error {
		if _, ok := t.snap.FindTraveller(travellerID); !ok {
			return core.ErrNotFound
		}
		trip := core.Trip{Morning: morning, Evening: evening}
		t.snap.DailyData.Set(key, travellerID, trip)
		t.draft.Set(key, travellerID, trip)
		return nil
	})
}
