package oauth

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/huynle/brain/internal/errtypes"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// HandleToken implements the token endpoint for both supported grant types
// (spec §4.6 "Token (POST /token)").
func (s *Server) HandleToken(w http.ResponseWriter, r *http.Request) {
	req, err := parseTokenRequest(r)
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, err.Error()))
		return
	}

	if user, pass, ok := r.BasicAuth(); ok {
		req.ClientID, req.ClientSecret = user, pass
	}

	switch req.GrantType {
	case "authorization_code":
		s.handleAuthorizationCodeGrant(w, r, req)
	case "refresh_token":
		s.handleRefreshTokenGrant(w, r, req)
	case "":
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "grant_type is required"))
	default:
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrUnsupportedGrantType, "unsupported grant_type: "+req.GrantType))
	}
}

func (s *Server) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.Code == "" || req.RedirectURI == "" || req.CodeVerifier == "" {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "code, redirect_uri, and code_verifier are required"))
		return
	}
	if !ValidCodeVerifier(req.CodeVerifier) {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "malformed code_verifier"))
		return
	}

	ac, err := s.Store.ConsumeAuthCode(r.Context(), req.Code)
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "code is invalid, already used, or expired"))
		return
	}
	if ac.ClientID != req.ClientID || ac.RedirectURI != req.RedirectURI {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "client_id or redirect_uri does not match the authorization request"))
		return
	}
	if !VerifyPKCEChallenge(req.CodeVerifier, ac.CodeChallenge) {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "code_verifier does not match code_challenge"))
		return
	}
	if err := s.authenticateClient(r, req); err != nil {
		writeOAuthError(w, err)
		return
	}

	access, accessExp, refresh, _, err := s.issueTokenPair(r.Context(), ac.ClientID, ac.ClientID, ac.Scope)
	if err != nil {
		writeOAuthError(w, mustOAuthError(err))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenTTL.Seconds()),
		RefreshToken: refresh,
		Scope:        ac.Scope,
	})
	_ = accessExp
}

func (s *Server) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.RefreshToken == "" {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidRequest, "refresh_token is required"))
		return
	}
	if err := s.authenticateClient(r, req); err != nil {
		writeOAuthError(w, err)
		return
	}

	id, secret, ok := SplitRefreshToken(req.RefreshToken)
	if !ok {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "malformed refresh_token"))
		return
	}
	stored, err := s.Store.FindRefreshTokenByID(r.Context(), id)
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "refresh_token is invalid or expired"))
		return
	}
	if stored.ExpiresAt.Before(time.Now()) {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "refresh_token is invalid or expired"))
		return
	}
	if valid, verr := VerifyToken(secret, stored.Hash); verr != nil || !valid {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrInvalidGrant, "refresh_token is invalid or expired"))
		return
	}

	nextPlain, nextID, nextHash, expiresAt, err := s.Tokens.GenerateRefreshToken()
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}
	next := RefreshToken{ID: nextID, Hash: nextHash, ClientID: stored.ClientID, Subject: stored.Subject, Scope: stored.Scope, ExpiresAt: expiresAt}
	if err := s.Store.RotateRefreshToken(r.Context(), id, next); err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}

	access, _, err := s.Tokens.IssueAccessToken(AccessClaims{Subject: stored.Subject, ClientID: stored.ClientID, Scope: stored.Scope})
	if err != nil {
		writeOAuthError(w, errtypes.NewOAuthError(errtypes.ErrServerError, err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenTTL.Seconds()),
		RefreshToken: nextPlain,
		Scope:        stored.Scope,
	})
}

func (s *Server) authenticateClient(r *http.Request, req tokenRequest) *errtypes.OAuthError {
	if req.ClientID == "" {
		return nil // public client, none auth method
	}
	client, err := s.Store.GetClient(r.Context(), req.ClientID)
	if err != nil {
		return errtypes.NewOAuthError(errtypes.ErrInvalidClient, "unknown client_id")
	}
	if req.ClientSecret != "" && req.ClientSecret != client.Secret {
		return errtypes.NewOAuthError(errtypes.ErrInvalidClient, "client secret does not match")
	}
	return nil
}

func mustOAuthError(err error) *errtypes.OAuthError {
	if oerr, ok := err.(*errtypes.OAuthError); ok {
		return oerr
	}
	return errtypes.NewOAuthError(errtypes.ErrServerError, err.Error())
}

func parseTokenRequest(r *http.Request) (tokenRequest, error) {
	var req tokenRequest
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch contentType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req = tokenRequest{
			GrantType:    r.FormValue("grant_type"),
			Code:         r.FormValue("code"),
			RedirectURI:  r.FormValue("redirect_uri"),
			CodeVerifier: r.FormValue("code_verifier"),
			RefreshToken: r.FormValue("refresh_token"),
			ClientID:     r.FormValue("client_id"),
			ClientSecret: r.FormValue("client_secret"),
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return req, err
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}
