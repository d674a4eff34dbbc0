package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"procurement-docs/internal/app"
	"procurement-docs/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Retryable: status >= 500 && status != http.StatusNotImplemented,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrDocumentNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrVersionConflict):
		writeError(w, r, err.Error(), "VERSION_CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidDocument),
		errors.Is(err, core.ErrInvalidField),
		errors.Is(err, core.ErrReadOnlyField):
		writeError(w, r, err.Error(), "INVALID_DOCUMENT", http.StatusBadRequest)
	case errors.Is(err, app.ErrNumberingUnsupported):
		writeError(w, r, err.Error(), "NOT_IMPLEMENTED", http.StatusNotImplemented)
	default:
		log.Printf("[%s] %s %s: %v", requestIDFromContext(r.Context()), r.Method, r.URL.Path, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
