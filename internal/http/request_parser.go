package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"carpool/internal/core"
)

// maxBodyBytes bounds request bodies; backups are the largest.
const maxBodyBytes = 8 << 20

// decodeJSON reads the request body into v. Unknown fields and trailing
// data are rejected.
func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest(fmt.Sprintf("invalid JSON: %v", err))
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}

// ParseRangeParams reads an optional start/end pair from the query.
// With neither set, fallback is returned; a partial or invalid pair is an error.
func ParseRangeParams(query url.Values, fallback core.DateRange) (core.DateRange, error) {
	start := strings.TrimSpace(query.Get("start"))
	end := strings.TrimSpace(query.Get("end"))
	if start == "" && end == "" {
		return fallback, nil
	}
	r := core.DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return core.DateRange{}, err
	}
	return r, nil
}

// pathID returns a trimmed, sanitized path parameter.
func pathID(r *http.Request, name string) string {
	return sanitizeInput(r.PathValue(name))
}
