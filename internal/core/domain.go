package core

import (
	"errors"
	"strings"
	"time"
)

// Leg is one of the two trip slots of a day.
type Leg string

const (
	Morning Leg = "morning"
	Evening Leg = "evening"
)

// TollCategory is the expense category written by the auto-toll side effect.
const TollCategory = "Toll"

// ExpenseCategories is the fixed set offered for car expenses.
// Free-form categories are accepted as well.
var ExpenseCategories = []string{"Fuel", TollCategory, "Parking", "Maintenance", "Insurance", "Cleaning", "Other"}

type (
	Traveller struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Entry is a money record owed by or received from a traveller.
	Entry struct {
		ID          string `json:"id"`
		TravellerID string `json:"travellerId"`
		Amount      Money  `json:"amount"`
		Date        string `json:"date"`
		Note        string `json:"note,omitempty"`
	}

	// CashPayment is money received from a traveller.
	CashPayment = Entry

	// OtherPending is an additional charge owed outside trip charges.
	OtherPending = Entry

	CarExpense struct {
		ID       string `json:"id"`
		Date     string `json:"date"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
		Note     string `json:"note,omitempty"`
	}

	// CoTravellerIncome is income from the generic "other co-traveller" bucket.
	CoTravellerIncome struct {
		ID     string `json:"id"`
		Amount Money  `json:"amount"`
		Date   string `json:"date"`
		Note   string `json:"note,omitempty"`
	}

	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}

	Settings struct {
		RatePerTrip     Money     `json:"ratePerTrip"`
		IncludeSaturday bool      `json:"includeSaturday"`
		IncludeSunday   bool      `json:"includeSunday"`
		DateRange       DateRange `json:"dateRange"`
	}

	// AutoToll configures the toll expense appended when participation is saved.
	AutoToll struct {
		Enabled bool  `json:"enabled"`
		Amount  Money `json:"amount"`
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeRate   = errors.New("rate per trip must not be negative")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidRange   = errors.New("invalid date range")
	ErrInvalidLeg     = errors.New("invalid leg")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyTraveller = errors.New("empty traveller id")
	// ErrUnknownTraveller is a record pointing at a traveller that does not exist.
	ErrUnknownTraveller = errors.New("unknown traveller")
	ErrNotFound         = errors.New("not found")
)

// ParseLeg converts a string into a Leg.
func ParseLeg(s string) (Leg, error) {
	switch Leg(strings.ToLower(strings.TrimSpace(s))) {
	case Morning:
		return Morning, nil
	case Evening:
		return Evening, nil
	}
	return "", ErrInvalidLeg
}

func (t Traveller) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.TravellerID) == "" {
		return ErrEmptyTraveller
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if _, ok := ParseDate(e.Date); !ok {
		return ErrInvalidDate
	}
	return nil
}

func (e CarExpense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if _, ok := ParseDate(e.Date); !ok {
		return ErrInvalidDate
	}
	return nil
}

func (i CoTravellerIncome) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if _, ok := ParseDate(i.Date); !ok {
		return ErrInvalidDate
	}
	return nil
}

func (r DateRange) Validate() error {
	start, ok := ParseDate(r.Start)
	if !ok {
		return ErrInvalidRange
	}
	end, ok := ParseDate(r.End)
	if !ok {
		return ErrInvalidRange
	}
	if end.Before(start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether the calendar date falls in the range, inclusive.
// An unparseable range contains nothing.
func (r DateRange) Contains(d time.Time) bool {
	start, ok := ParseDate(r.Start)
	if !ok {
		return false
	}
	end, ok := ParseDate(r.End)
	if !ok {
		return false
	}
	d = DateOnly(d)
	return !d.Before(start) && !d.After(end)
}

// MonthRange returns the range covering the month of t.
func MonthRange(t time.Time) DateRange {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return DateRange{Start: DateKey(first), End: DateKey(last)}
}

// DefaultSettings returns the settings of an empty ledger.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		RatePerTrip: Zero,
		DateRange:   MonthRange(now),
	}
}
