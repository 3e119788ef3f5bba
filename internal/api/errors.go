package api

import (
	"encoding/json"
	"net/http"

	"github.com/arencloud/strata/internal/errs"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps an error kind to the HTTP status reported to clients.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindConnectionNotFound:
		return http.StatusNotFound
	case errs.KindValidation, errs.KindSerialization, errs.KindEncoding:
		return http.StatusBadRequest
	case errs.KindSizeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case errs.KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError records an error event into the current trace and writes
// the classified error as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	kind := errs.KindOf(err).String()
	addEvent(r, "error", map[string]any{"code": code, "kind": kind, "message": err.Error()})
	writeJSON(w, code, errorBody{Error: kind, Message: err.Error()})
}

// decodeJSON reads a JSON request body into v; malformed input is a
// validation failure.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("malformed request body", err)
	}
	return nil
}
