package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/echoverse/echoverse/internal/narrate"
	"github.com/echoverse/echoverse/internal/session"
)

// errorResponse is the JSON body for all error replies. Kind identifies the
// failed stage so clients can distinguish bad input from provider outages.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response","kind":"internal"}`, http.StatusInternalServerError)
	}
}

// writeError maps err to an HTTP status and JSON body:
//
//   - validation failures        → 422
//   - unknown session            → 404
//   - narration already running  → 409
//   - rewrite or synthesis stage → 502
//
// Anything unrecognised becomes a 500.
func writeError(w http.ResponseWriter, err error) {
	var rwErr *narrate.RewriteError
	var spErr *narrate.SynthesisError

	switch {
	case errors.Is(err, narrate.ErrEmptyText),
		errors.Is(err, narrate.ErrInvalidTone),
		errors.Is(err, narrate.ErrInvalidAccent):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "validation"})
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrEnded):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "conflict"})
	case errors.As(err, &rwErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "rewrite"})
	case errors.As(err, &spErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "synthesis"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
	}
}
