package oauth

import (
	"net/http"

	"github.com/huynle/brain/internal/errtypes"
)

// writeOAuthError renders {error, error_description} at the status the code
// maps to (spec §6 "errors use {error, error_description}").
func writeOAuthError(w http.ResponseWriter, oerr *errtypes.OAuthError) {
	writeJSON(w, oerr.Status, map[string]string{
		"error":             string(oerr.Code),
		"error_description": oerr.Description,
	})
}
