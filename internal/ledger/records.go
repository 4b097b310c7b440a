package ledger

import (
	"strings"

	"carpool/internal/core"
)

// AddTraveller creates a traveller with a new id.
func (s *Store) AddTraveller(name string) (core.Traveller, error) {
	t := core.Traveller{Name: strings.TrimSpace(name)}
	if err := t.Validate(); err != nil {
		return core.Traveller{}, err
	}
	err := s.commit(SourceUserEdit, func(x *tx) error {
		t.ID = s.newID()
		x.snap.Travellers = append(x.snap.Travellers, t)
		return nil
	})
	return t, err
}

// RenameTraveller changes a traveller's name; the id is kept.
func (s *Store) RenameTraveller(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	return s.commit(SourceUserEdit, func(x *tx) error {
		for i := range x.snap.Travellers {
			if x.snap.Travellers[i].ID == id {
				x.snap.Travellers[i].Name = name
				return nil
			}
		}
		return core.ErrNotFound
	})
}

// RemoveTraveller deletes a traveller and purges it from committed and draft
// participation. Money records that reference it are kept.
func (s *Store) RemoveTraveller(id string) error {
	return s.commit(SourceUserEdit, func(x *tx) error {
		var ok bool
		x.snap.Travellers, ok = removeByID(x.snap.Travellers, id, travellerID)
		if !ok {
			return core.ErrNotFound
		}
		x.snap.DailyData.RemoveTraveller(id)
		x.draft.RemoveTraveller(id)
		return nil
	})
}

// AddCashPayment records a cash payment under a new id.
func (s *Store) AddCashPayment(p core.CashPayment) (core.CashPayment, error) {
	return addEntry(s, p, func(x *tx) *[]core.Entry { return &x.snap.CashPayments })
}

// UpdateCashPayment replaces the cash payment with the same id.
func (s *Store) UpdateCashPayment(p core.CashPayment) error {
	return updateEntry(s, p, func(x *tx) *[]core.Entry { return &x.snap.CashPayments })
}

// RemoveCashPayment deletes a cash payment. Returns core.ErrNotFound for an unknown id.
func (s *Store) RemoveCashPayment(id string) error {
	return s.commit(SourceUserEdit, func(x *tx) error {
		var ok bool
		if x.snap.CashPayments, ok = removeByID(x.snap.CashPayments, id, entryID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
}

// AddOtherPending records an amount owed outside trips under a new id.
func (s *Store) AddOtherPending(p core.OtherPending) (core.OtherPending, error) {
	return addEntry(s, p, func(x *tx) *[]core.Entry { return &x.snap.OtherPending })
}

// UpdateOtherPending replaces the pending amount with the same id.
func (s *Store) UpdateOtherPending(p core.OtherPending) error {
	return updateEntry(s, p, func(x *tx) *[]core.Entry { return &x.snap.OtherPending })
}

// RemoveOtherPending deletes a pending amount.
func (s *Store) RemoveOtherPending(id string) error {
	return s.commit(SourceUserEdit, func(x *tx) error {
		var ok bool
		if x.snap.OtherPending, ok = removeByID(x.snap.OtherPending, id, entryID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
}

// AddCarExpense records a car expense under a new id.
func (s *Store) AddCarExpense(e core.CarExpense) (core.CarExpense, error) {
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return core.CarExpense{}, err
	}
	err := s.commit(SourceUserEdit, func(x *tx) error {
		e.ID = s.newID()
		x.snap.CarExpenses = append(x.snap.CarExpenses, e)
		return nil
	})
	return e, err
}

// UpdateCarExpense replaces the car expense with the same id.
func (s *Store) UpdateCarExpense(e core.CarExpense) error {
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return err
	}
	return s.commit(SourceUserEdit, func(x *tx) error {
		if !replaceByID(x.snap.CarExpenses, e, carExpenseID) {
			return core.ErrNotFound
		}
		return nil
	})
}

// RemoveCarExpense deletes a car expense.
func (s *Store) RemoveCarExpense(id string) error {
	return s.commit(SourceUserEdit, func(x *tx) error {
		var ok bool
		if x.snap.CarExpenses, ok = removeByID(x.snap.CarExpenses, id, carExpenseID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
}

// AddCoTravellerIncome records an income from a co-traveller under a new id.
func (s *Store) AddCoTravellerIncome(i core.CoTravellerIncome) (core.CoTravellerIncome, error) {
	if err := i.Validate(); err != nil {
		return core.CoTravellerIncome{}, err
	}
	err := s.commit(SourceUserEdit, func(x *tx) error {
		i.ID = s.newID()
		x.snap.CoTravellerIncomes = append(x.snap.CoTravellerIncomes, i)
		return nil
	})
	return i, err
}

// UpdateCoTravellerIncome replaces the income with the same id.
func (s *Store) UpdateCoTravellerIncome(i core.CoTravellerIncome) error {
	if err := i.Validate(); err != nil {
		return err
	}
	return s.commit(SourceUserEdit, func(x *tx) error {
		if !replaceByID(x.snap.CoTravellerIncomes, i, incomeID) {
			return core.ErrNotFound
		}
		return nil
	})
}

// RemoveCoTravellerIncome deletes an income.
func (s *Store) RemoveCoTravellerIncome(id string) error {
	return s.commit(SourceUserEdit, func(x *tx) error {
		var ok bool
		if x.snap.CoTravellerIncomes, ok = removeByID(x.snap.CoTravellerIncomes, id, incomeID); !ok {
			return core.ErrNotFound
		}
		return nil
	})
}

func addEntry(s *Store, e core.Entry, list func(*tx) *[]core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	err := s.commit(SourceUserEdit, func(x *tx) error {
		e.ID = s.newID()
		l := list(x)
		*l = append(*l, e)
		return nil
	})
	return e, err
}

func updateEntry(s *Store, e core.Entry, list func(*tx) *[]core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.commit(SourceUserEdit, func(x *tx) error {
		if !replaceByID(*list(x), e, entryID) {
			return core.ErrNotFound
		}
		return nil
	})
}

func travellerID(t core.Traveller) string      { return t.ID }
func entryID(e core.Entry) string              { return e.ID }
func carExpenseID(e core.CarExpense) string    { return e.ID }
func incomeID(i core.CoTravellerIncome) string { return i.ID }

// replaceByID overwrites the item with the same id in place.
func replaceByID[T any](list []T, item T, id func(T) string) bool {
	for i := range list {
		if id(list[i]) == id(item) {
			list[i] = item
			return true
		}
	}
	return false
}

// removeByID returns list without the item carrying id.
func removeByID[T any](list []T, target string, id func(T) string) ([]T, bool) {
	for i := range list {
		if id(list[i]) == target {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
