package http

import (
	"context"
	"net/http"
	"time"

	"carpool/internal/core"
	"carpool/internal/ledger"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady runs every readiness check with a short timeout. The ledger
// itself is always ready; only the configured backends can fail.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.readiness))
	ready := true
	for _, c := range s.readiness {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

// LedgerView is the committed ledger plus its local bookkeeping.
type LedgerView struct {
	Ledger          core.Snapshot `json:"ledger"`
	Mark            ledger.Mark   `json:"mark"`
	HasDraftChanges bool          `json:"hasDraftChanges"`
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	snap, mark := s.ledger.StateWithMark()
	writeJSON(w, http.StatusOK, LedgerView{
		Ledger:          snap,
		Mark:            mark,
		HasDraftChanges: s.ledger.HasDraftChanges(),
	})
}

// handleClearLedger wipes every record and resets settings to defaults.
// The request must confirm with ?confirm=true.
func (s *Server) handleClearLedger(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, r, badRequest("clearing the ledger requires confirm=true"))
		return
	}
	s.ledger.ClearAllLedgerData()
	s.logger.WarnContext(r.Context(), "Ledger cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": core.ExpenseCategories})
}
