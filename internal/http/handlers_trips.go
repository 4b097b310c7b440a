package http

import (
	"net/http"

	"carpool/internal/core"
)

type toggleRequest struct {
	Date        string `json:"date"`
	TravellerID string `json:"travellerId"`
	Leg         string `json:"leg"`
}

type dayRequest struct {
	Date    string `json:"date"`
	Morning bool   `json:"morning"`
	Evening bool   `json:"evening"`
}

type tripRequest struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
}

// DraftView is the working copy of participation.
type DraftView struct {
	DailyData  core.DailyData `json:"dailyData"`
	HasChanges bool           `json:"hasChanges"`
}

func (s *Server) handleGetTrips(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.GetPersistedState()
	writeJSON(w, http.StatusOK, map[string]core.DailyData{"dailyData": snap.DailyData})
}

func (s *Server) handleClearTrips(w http.ResponseWriter, r *http.Request) {
	s.ledger.ClearDailyData()
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateTrip writes one cell straight into committed and draft
// participation, as the trip-history editor does.
func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, travellerID := pathID(r, "date"), pathID(r, "travellerID")
	if err := s.ledger.UpdateTravellerTrip(date, travellerID, req.Morning, req.Evening); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.Trip{Morning: req.Morning, Evening: req.Evening})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DraftView{DailyData: s.ledger.Draft(), HasChanges: s.ledger.HasDraftChanges()})
}

func (s *Server) handleToggleDraft(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	leg, err := core.ParseLeg(req.Leg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.ToggleDraftTrip(req.Date, sanitizeInput(req.TravellerID), leg); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetDraft(w, r)
}

func (s *Server) handleSetDraftDay(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.SetDraftTripsForAllTravellers(req.Date, req.Morning, req.Evening); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetDraft(w, r)
}

// handleSaveDraft commits the draft and reports the dates that changed.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	changed := s.ledger.SaveDraftDailyData()
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changedDates": changed, "mark": s.ledger.Mark()})
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	s.ledger.DiscardDraftDailyData()
	w.WriteHeader(http.StatusNoContent)
}
