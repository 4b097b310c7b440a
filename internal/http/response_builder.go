package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"carpool/internal/backup"
	"carpool/internal/core"
	"carpool/internal/log"
	"carpool/internal/remote"
	"carpool/internal/worker"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes an ErrorBody.
// Server-side failures are logged; client mistakes are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	}
	writeJSON(w, status, ErrorBody{Error: err.Error(), RequestID: log.RequestID(r.Context())})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeRate),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidLeg),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyTraveller),
		errors.Is(err, core.ErrUnknownTraveller):
		return http.StatusUnprocessableEntity
	case errors.Is(err, backup.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrNotAuthenticated),
		errors.Is(err, worker.ErrSaveInFlight),
		errors.Is(err, remote.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, worker.ErrRemoteFormat):
		return http.StatusBadGateway
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// badRequestError marks malformed requests.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }
