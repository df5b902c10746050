package oauth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const claimsContextKey contextKey = "oauth-claims"

// ClaimsFromContext retrieves the bearer token claims injected by
// BearerMiddleware, if any.
func ClaimsFromContext(ctx context.Context) (AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(AccessClaims)
	return claims, ok
}

// BearerMiddleware verifies the Authorization header's bearer token as a
// signed JWT access token (signature and expiry; no store lookup) and injects
// the resulting claims into the request context (spec
// §4.6 "Bearer middleware"). When EnableAuth is false, requests pass
// through unchecked (spec §4.6 "Conditional enablement").
func (s *Server) BearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		const prefix = "bearer "
		if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		token := header[len(prefix):]

		claims, err := s.Tokens.ParseAccessToken(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp", error="invalid_token"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope wraps a handler, rejecting requests whose token scope does
// not cover required (spec §4.6 "Scope enforcement"). When EnableAuth is
// false, it is a no-op passthrough.
func (s *Server) RequireScope(required string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !ScopeSatisfied(claims.Scope, required) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient_scope"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
