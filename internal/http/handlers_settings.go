package http

import (
	"net/http"

	"carpool/internal/core"
)

type settingsRequest struct {
	RatePerTrip     *core.Money     `json:"ratePerTrip,omitempty"`
	IncludeSaturday *bool           `json:"includeSaturday,omitempty"`
	IncludeSunday   *bool           `json:"includeSunday,omitempty"`
	DateRange       *core.DateRange `json:"dateRange,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

// handleUpdateSettings applies the fields present in the body; absent
// fields keep their current value.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st := s.ledger.Settings()
	if req.RatePerTrip != nil {
		st.RatePerTrip = *req.RatePerTrip
	}
	if req.IncludeSaturday != nil {
		st.IncludeSaturday = *req.IncludeSaturday
	}
	if req.IncludeSunday != nil {
		st.IncludeSunday = *req.IncludeSunday
	}
	if req.DateRange != nil {
		st.DateRange = core.DateRange{Start: sanitizeInput(req.DateRange.Start), End: sanitizeInput(req.DateRange.End)}
	}
	if err := s.ledger.UpdateSettings(st); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

func (s *Server) handleGetAutoToll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.AutoToll())
}

func (s *Server) handleSetAutoToll(w http.ResponseWriter, r *http.Request) {
	var req core.AutoToll
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetAutoToll(req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.AutoToll())
}

// handleEditable reports whether participation on ?date= may be edited.
func (s *Server) handleEditable(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	d, ok := core.ParseDate(date)
	if !ok {
		writeError(w, r, core.ErrInvalidDate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": core.DateKey(d), "editable": s.ledger.IsEditable(d)})
}
