package core

// Snapshot is the full serializable ledger: the unit of persistence, backup
// and merge. Participation is always the committed copy.
type Snapshot struct {
	Travellers         []Traveller         `json:"travellers"`
	DailyData          DailyData           `json:"dailyData"`
	DateRange          DateRange           `json:"dateRange"`
	RatePerTrip        Money               `json:"ratePerTrip"`
	CashPayments       []CashPayment       `json:"cashPayments"`
	OtherPending       []OtherPending      `json:"otherPending"`
	CarExpenses        []CarExpense        `json:"carExpenses"`
	IncludeSaturday    bool                `json:"includeSaturday"`
	IncludeSunday      bool                `json:"includeSunday"`
	CoTravellerIncomes []CoTravellerIncome `json:"coTravellerIncomes"`
}

// Settings returns the scalar settings of the snapshot.
func (s Snapshot) Settings() Settings {
	return Settings{
		RatePerTrip:     s.RatePerTrip,
		IncludeSaturday: s.IncludeSaturday,
		IncludeSunday:   s.IncludeSunday,
		DateRange:       s.DateRange,
	}
}

// WithSettings returns a copy of s carrying the given settings.
func (s Snapshot) WithSettings(st Settings) Snapshot {
	s.RatePerTrip = st.RatePerTrip
	s.IncludeSaturday = st.IncludeSaturday
	s.IncludeSunday = st.IncludeSunday
	s.DateRange = st.DateRange
	return s
}

// EmptySnapshot returns a ledger with no records and the given settings.
func EmptySnapshot(st Settings) Snapshot {
	return Snapshot{
		Travellers:         []Traveller{},
		DailyData:          DailyData{},
		CashPayments:       []CashPayment{},
		OtherPending:       []OtherPending{},
		CarExpenses:        []CarExpense{},
		CoTravellerIncomes: []CoTravellerIncome{},
	}.WithSettings(st)
}

// Clone returns a deep copy of s; collections are never nil.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Travellers = append([]Traveller{}, s.Travellers...)
	out.DailyData = s.DailyData.Clone()
	out.CashPayments = append([]CashPayment{}, s.CashPayments...)
	out.OtherPending = append([]OtherPending{}, s.OtherPending...)
	out.CarExpenses = append([]CarExpense{}, s.CarExpenses...)
	out.CoTravellerIncomes = append([]CoTravellerIncome{}, s.CoTravellerIncomes...)
	return out
}

// FindTraveller returns the traveller with id, if still present.
func (s Snapshot) FindTraveller(id string) (Traveller, bool) {
	for _, t := range s.Travellers {
		if t.ID == id {
			return t, true
		}
	}
	return Traveller{}, false
}
