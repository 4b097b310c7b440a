package http

import (
	"net/http"

	"carpool/internal/calculator"
	"carpool/internal/core"
)

type travellerRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListTravellers(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	writeJSON(w, http.StatusOK, map[string][]core.Traveller{"travellers": snap.Travellers})
}

func (s *Server) handleAddTraveller(w http.ResponseWriter, r *http.Request) {
	var req travellerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.AddTraveller(sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleRenameTraveller(w http.ResponseWriter, r *http.Request) {
	var req travellerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := pathID(r, "id")
	if err := s.ledger.RenameTraveller(id, sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.Traveller{ID: id, Name: sanitizeInput(req.Name)})
}

func (s *Server) handleRemoveTraveller(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveTraveller(pathID(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findTraveller returns the traveller with id from snap.
func findTraveller(snap core.Snapshot, id string) (core.Traveller, error) {
	for _, t := range snap.Travellers {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Traveller{}, core.ErrNotFound
}

// handleTravellerBalance computes one traveller's balance over the ledger
// range, or over ?start=&end= when given.
func (s *Server) handleTravellerBalance(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	t, err := findTraveller(snap, pathID(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dr, err := ParseRangeParams(r.URL.Query(), snap.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b := calculator.CalculateTravellerBalance(t.ID, dr, snap.DailyData, snap.RatePerTrip,
		snap.CashPayments, snap.OtherPending, snap.IncludeSaturday, snap.IncludeSunday)
	writeJSON(w, http.StatusOK, calculator.TravellerBalance{Traveller: t, Balance: b, Status: b.Status()})
}

func (s *Server) handleTripHistory(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	t, err := findTraveller(snap, pathID(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dr, err := ParseRangeParams(r.URL.Query(), snap.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days := calculator.TripHistory(t.ID, dr, snap.DailyData, snap.IncludeSaturday, snap.IncludeSunday)
	if days == nil {
		days = []calculator.HistoryDay{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"traveller": t, "range": dr, "days": days})
}
