package oauth

import (
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/huynle/brain/internal/errtypes"
)

func nowPlus(d time.Duration) time.Time { return time.Now().Add(d) }

var errorPageTemplate = template.Must(template.New("authorize-error").Parse(`<!DOCTYPE html>
<html><head><title>Authorization error</title></head>
<body><h1>Authorization error</h1><p>{{.Description}}</p></body></html>`))

var consentPageTemplate = template.Must(template.New("authorize-consent").Parse(`<!DOCTYPE html>
<html><head><title>Authorize access</title></head>
<body>
<h1>Authorize access</h1>
<p>A client is requesting access with scope "{{.Scope}}".</p>
<form method="POST" action="/authorize">
<input type="hidden" name="client_id" value="{{.ClientID}}">
<input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
<input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
<input type="hidden" name="code_challenge_method" value="S256">
<input type="hidden" name="state" value="{{.State}}">
<input type="hidden" name="scope" value="{{.Scope}}">
<button type="submit" name="action" value="allow">Allow</button>
<button type="submit" name="action" value="deny">Deny</button>
</form>
</body></html>`))

type authorizeParams struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	State               string
	Scope               string
}

// HandleAuthorizeGet renders an error page for requests malformed before
// redirect-URI validation, or a consent page on success (spec §4.6
// "Authorize (GET /authorize)").
func (s *Server) HandleAuthorizeGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := authorizeParams{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		State:               q.Get("state"),
		Scope:               q.Get("scope"),
	}
	if params.Scope == "" {
		params.Scope = DefaultScope
	}

	if params.ResponseType != "code" {
		s.renderAuthorizeErrorPage(w, "response_type must be \"code\"")
		return
	}
	if params.ClientID == "" {
		s.renderAuthorizeErrorPage(w, "client_id is required")
		return
	}
	client, err := s.Store.GetClient(r.Context(), params.ClientID)
	if err != nil {
		s.renderAuthorizeErrorPage(w, "unknown client_id")
		return
	}
	if params.RedirectURI == "" || !redirectURIRegistered(client, params.RedirectURI) {
		s.renderAuthorizeErrorPage(w, "redirect_uri does not match a registered URI for this client")
		return
	}

	// From here on, errors redirect back to the client with error params
	// instead of rendering a page (spec §4.6).
	if params.CodeChallengeMethod != "S256" {
		s.redirectAuthorizeError(w, r, params, errtypes.ErrInvalidRequest, "code_challenge_method must be S256")
		return
	}
	if !ValidCodeChallenge(params.CodeChallenge) {
		s.redirectAuthorizeError(w, r, params, errtypes.ErrInvalidRequest, "code_challenge must be 43-character base64url")
		return
	}

	s.renderConsentPage(w, params)
}

// HandleAuthorizePost implements the consent decision (spec §4.6
// "Authorize (POST /authorize)").
func (s *Server) HandleAuthorizePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderAuthorizeErrorPage(w, "malformed form body")
		return
	}
	params := authorizeParams{
		ClientID:            r.FormValue("client_id"),
		RedirectURI:         r.FormValue("redirect_uri"),
		CodeChallenge:       r.FormValue("code_challenge"),
		CodeChallengeMethod: r.FormValue("code_challenge_method"),
		State:               r.FormValue("state"),
		Scope:               r.FormValue("scope"),
	}
	if params.Scope == "" {
		params.Scope = DefaultScope
	}
	action := r.FormValue("action")

	client, err := s.Store.GetClient(r.Context(), params.ClientID)
	if err != nil || params.RedirectURI == "" || !redirectURIRegistered(client, params.RedirectURI) {
		s.renderAuthorizeErrorPage(w, "invalid client or redirect_uri")
		return
	}

	if action != "allow" {
		s.redirectAuthorizeError(w, r, params, errtypes.ErrAccessDenied, "user denied the authorization request")
		return
	}

	code, err := NewAuthCode()
	if err != nil {
		s.redirectAuthorizeError(w, r, params, errtypes.ErrServerError, err.Error())
		return
	}
	if err := s.Store.CreateAuthCode(r.Context(), AuthCode{
		Code:          code,
		ClientID:      params.ClientID,
		RedirectURI:   params.RedirectURI,
		CodeChallenge: params.CodeChallenge,
		Scope:         params.Scope,
		ExpiresAt:     nowPlus(AuthCodeTTL),
	}); err != nil {
		s.redirectAuthorizeError(w, r, params, errtypes.ErrServerError, err.Error())
		return
	}

	redirect, _ := url.Parse(params.RedirectURI)
	q := redirect.Query()
	q.Set("code", code)
	if params.State != "" {
		q.Set("state", params.State)
	}
	redirect.RawQuery = q.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (s *Server) renderAuthorizeErrorPage(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = errorPageTemplate.Execute(w, struct{ Description string }{description})
}

func (s *Server) renderConsentPage(w http.ResponseWriter, params authorizeParams) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = consentPageTemplate.Execute(w, params)
}

func (s *Server) redirectAuthorizeError(w http.ResponseWriter, r *http.Request, params authorizeParams, code errtypes.OAuthErrorCode, description string) {
	redirect, err := url.Parse(params.RedirectURI)
	if err != nil {
		s.renderAuthorizeErrorPage(w, description)
		return
	}
	q := redirect.Query()
	q.Set("error", string(code))
	q.Set("error_description", description)
	if params.State != "" {
		q.Set("state", params.State)
	}
	redirect.RawQuery = q.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func redirectURIRegistered(client Client, candidate string) bool {
	for _, uri := range client.RedirectURIs {
		if uri == candidate {
			return true
		}
	}
	return false
}
