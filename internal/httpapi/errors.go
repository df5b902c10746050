package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/huynle/brain/internal/errtypes"
)

// errorResponse is the structured JSON error body every httpapi endpoint
// returns on failure (spec §6 "errors follow {error, message, details?}").
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeMappedError classifies err and writes the matching structured
// response, falling back to a 500 for anything unrecognized.
func writeMappedError(w http.ResponseWriter, err error) {
	var verr *errtypes.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
		return
	}
	var iu *errtypes.IndexerUnavailableError
	if errors.As(err, &iu) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "indexer_unavailable",
			Message: "the note indexer could not be reached",
			Details: iu.Error(),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal_error",
		Message: "an unexpected error occurred",
		Details: err.Error(),
	})
}
