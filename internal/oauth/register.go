package oauth

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/huynle/brain/internal/errtypes"
)

type registerRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// HandleRegister implements dynamic client registration (spec §4.6 "Dynamic
// Client Registration (POST /register)").
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "malformed JSON body"))
		return
	}
	if len(req.RedirectURIs) == 0 {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "redirect_uris must be a non-empty array"))
		return
	}
	for _, uri := range req.RedirectURIs {
		if _, err := url.ParseRequestURI(uri); err != nil {
			writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "redirect_uris must contain parseable URIs"))
			return
		}
	}
	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "client_secret_basic"
	}

	id, err := NewClientID()
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}
	secret, err := NewClientSecret()
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}

	client := Client{
		ID:                      id,
		Secret:                  secret,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: authMethod,
		SecretExpiresAt:         0,
	}
	if err := s.Store.CreateClient(r.Context(), client); err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, client)
}
