package http

import (
	"fmt"
	"net/http"

	"carpool/internal/core"
)

// entryOps binds one entry collection (cash payments or other pending) to
// the ledger operations that manage it.
type entryOps struct {
	list   func(core.Snapshot) []core.Entry
	add    func(core.Entry) (core.Entry, error)
	update func(core.Entry) error
	remove func(id string) error
	clear  func()
}

type entryRequest struct {
	TravellerID string     `json:"travellerId"`
	Amount      core.Money `json:"amount"`
	Date        string     `json:"date"`
	Note        string     `json:"note,omitempty"`
}

func (req entryRequest) entry(id string) core.Entry {
	return core.Entry{
		ID:          id,
		TravellerID: sanitizeInput(req.TravellerID),
		Amount:      req.Amount,
		Date:        sanitizeInput(req.Date),
		Note:        sanitizeInput(req.Note),
	}
}

// entryRoutes registers list, create, update, delete and clear for one
// entry collection under prefix.
func (s *Server) entryRoutes(mux *http.ServeMux, prefix string, ops entryOps) {
	mux.HandleFunc("GET "+prefix, func(w http.ResponseWriter, r *http.Request) {
		snap := s.ledger.GetPersistedState()
		entries := ops.list(snap)
		if travellerID := r.URL.Query().Get("traveller"); travellerID != "" {
			filtered := make([]core.Entry, 0, len(entries))
			for _, e := range entries {
				if e.TravellerID == travellerID {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		writeJSON(w, http.StatusOK, map[string][]core.Entry{"entries": entries})
	})

	mux.HandleFunc("POST "+prefix, func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e := req.entry("")
		if err := e.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := findTraveller(s.ledger.GetPersistedState(), e.TravellerID); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownTraveller, e.TravellerID))
			return
		}
		e, err := ops.add(e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	})

	mux.HandleFunc("PUT "+prefix+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e := req.entry(pathID(r, "id"))
		if err := ops.update(e); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})

	mux.HandleFunc("DELETE "+prefix+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := ops.remove(pathID(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE "+prefix, func(w http.ResponseWriter, r *http.Request) {
		ops.clear()
		w.WriteHeader(http.StatusNoContent)
	})
}

type expenseRequest struct {
	Date     string     `json:"date"`
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
	Note     string     `json:"note,omitempty"`
}

func (req expenseRequest) expense(id string) core.CarExpense {
	return core.CarExpense{
		ID:       id,
		Date:     sanitizeInput(req.Date),
		Category: sanitizeInput(req.Category),
		Amount:   req.Amount,
		Note:     sanitizeInput(req.Note),
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	writeJSON(w, http.StatusOK, map[string][]core.CarExpense{"expenses": snap.CarExpenses})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.AddCarExpense(req.expense(""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e := req.expense(pathID(r, "id"))
	if err := s.ledger.UpdateCarExpense(e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveCarExpense(pathID(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	s.ledger.ClearCarExpenses()
	w.WriteHeader(http.StatusNoContent)
}

type incomeRequest struct {
	Amount core.Money `json:"amount"`
	Date   string     `json:"date"`
	Note   string     `json:"note,omitempty"`
}

func (req incomeRequest) income(id string) core.CoTravellerIncome {
	return core.CoTravellerIncome{
		ID:     id,
		Amount: req.Amount,
		Date:   sanitizeInput(req.Date),
		Note:   sanitizeInput(req.Note),
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	writeJSON(w, http.StatusOK, map[string][]core.CoTravellerIncome{"incomes": snap.CoTravellerIncomes})
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	i, err := s.ledger.AddCoTravellerIncome(req.income(""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, i)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	i := req.income(pathID(r, "id"))
	if err := s.ledger.UpdateCoTravellerIncome(i); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (s *Server) handleRemoveIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveCoTravellerIncome(pathID(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
