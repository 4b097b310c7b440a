package ledger

import (
	"encoding/json"
	"time"

	"carpool/internal/calendar"
	"carpool/internal/core"
	"carpool/internal/log"
)

// Settings returns the ledger-wide settings.
func (s *Store) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Settings()
}

// UpdateSettings replaces the ledger-wide settings.
func (s *Store) UpdateSettings(st core.Settings) error {
	if st.RatePerTrip.IsNegative() {
		return core.ErrNegativeRate
	}
	if err := st.DateRange.Validate(); err != nil {
		return err
	}
	return s.commit(SourceUserEdit, func(x *tx) error {
		x.snap = x.snap.WithSettings(st)
		return nil
	})
}

// SetRatePerTrip changes the amount charged per trip.
func (s *Store) SetRatePerTrip(rate core.Money) error {
	st := s.Settings()
	st.RatePerTrip = rate
	return s.UpdateSettings(st)
}

// SetIncludeWeekends sets which weekend days count as commute days.
func (s *Store) SetIncludeWeekends(saturday, sunday bool) error {
	st := s.Settings()
	st.IncludeSaturday = saturday
	st.IncludeSunday = sunday
	return s.UpdateSettings(st)
}

// SetDateRange changes the calculation period.
func (s *Store) SetDateRange(r core.DateRange) error {
	st := s.Settings()
	st.DateRange = r
	return s.UpdateSettings(st)
}

// IsEditable reports whether participation on date may be edited under the
// current weekend toggles.
func (s *Store) IsEditable(date time.Time) bool {
	st := s.Settings()
	return calendar.IsIncluded(date, st.IncludeSaturday, st.IncludeSunday)
}

// AutoToll returns the auto-toll configuration.
func (s *Store) AutoToll() core.AutoToll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoToll
}

// SetAutoToll changes the auto-toll configuration. It is a device setting:
// it is persisted locally but is not part of the synced ledger.
func (s *Store) SetAutoToll(at core.AutoToll) error {
	if at.Enabled {
		if err := at.Amount.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoToll = at
	if s.local == nil {
		return nil
	}
	b, err := json.Marshal(at)
	if err != nil {
		return err
	}
	if err := s.local.Set(AutoTollKey, string(b)); err != nil {
		s.logger.Error("Failed to persist auto-toll setting", log.FieldOperation, log.OpPersist, log.FieldError, err)
	}
	return nil
}
