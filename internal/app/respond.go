package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teamplane/teamplane/internal/apperrors"
)

type errorResponse struct {
	Error  string                 `json:"error"`
	Fields []apperrors.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Internal errors
// never leak their message to the client.
func writeError(w http.ResponseWriter, err error) {
	var v *apperrors.ValidationError
	if errors.As(err, &v) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: v.Fields})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, apperrors.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed"})
	default:
		log.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON decodes a request body, rejecting unknown fields. On failure it
// writes the error response itself and returns the error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return err
	}
	return nil
}
