package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carpool/internal/worker"
)

// errSyncDisabled is returned by sync routes when no remote is configured.
var errSyncDisabled = errors.New("sync is not configured")

type loginRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) requireSync(w http.ResponseWriter, r *http.Request) bool {
	if s.sync == nil {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: errSyncDisabled.Error()})
		return false
	}
	return true
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "state": s.sync.State()})
}

func (s *Server) handleSyncLogin(w http.ResponseWriter, r *http.Request) {
	if !s.requireSync(w, r) {
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sync.Login(sanitizeInput(req.Owner)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sync.State())
}

func (s *Server) handleSyncLogout(w http.ResponseWriter, r *http.Request) {
	if !s.requireSync(w, r) {
		return
	}
	s.sync.Logout()
	writeJSON(w, http.StatusOK, s.sync.State())
}

// handleSyncNow pulls and then pushes any unsaved revision, without waiting
// for the poll tick or the debounce.
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if !s.requireSync(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.sync.Pull(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sync.Push(ctx); err != nil && !errors.Is(err, worker.ErrSaveInFlight) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sync.State())
}
