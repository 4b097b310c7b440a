package http

import (
	"net/http"

	"carpool/internal/calculator"
)

// handleBalances returns every traveller's balance. ?start=&end= narrows
// the range without touching the stored settings.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	dr, err := ParseRangeParams(r.URL.Query(), snap.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap.DateRange = dr
	writeJSON(w, http.StatusOK, calculator.AllBalances(snap))
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	dr, err := ParseRangeParams(r.URL.Query(), snap.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calculator.ExpenseSummary(snap.CarExpenses, dr))
}

func (s *Server) handleIncomeSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	dr, err := ParseRangeParams(r.URL.Query(), snap.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap.DateRange = dr
	writeJSON(w, http.StatusOK, calculator.IncomeSummary(snap))
}
