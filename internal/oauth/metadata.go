package oauth

import (
	"encoding/json"
	"net/http"
)

// issuerFromRequest derives the issuer string from the request's
// scheme+host (spec §4.6 "issuer is derived from the request's
// scheme+host").
func issuerFromRequest(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// HandleAuthorizationServerMetadata serves
// /.well-known/oauth-authorization-server (spec §4.6).
func (s *Server) HandleAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	issuer := issuerFromRequest(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/authorize",
		"token_endpoint":                         issuer + "/token",
		"registration_endpoint":                  issuer + "/register",
		"response_types_supported":               []string{"code"},
		"grant_types_supported":                  []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":       []string{"S256"},
		"token_endpoint_auth_methods_supported":  []string{"client_secret_post", "client_secret_basic", "none"},
	})
}

// HandleProtectedResourceMetadata serves
// /.well-known/oauth-protected-resource/mcp (spec §4.6).
func (s *Server) HandleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	issuer := issuerFromRequest(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"resource":                issuer + "/mcp",
		"authorization_servers":   []string{issuer},
		"bearer_methods_supported": []string{"header"},
		"scopes_supported":        ProtectedResourceScopes,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
