// Package oauth implements an OAuth 2.1 authorization server: PKCE
// authorization-code grant with dynamic client registration, JWT access
// tokens, and Argon2id-hashed rotating refresh tokens (spec §4.6), grounded
// on the domain/adapter split of internal/auth/domain/types.go and the
// token-issuance style of internal/auth/adapters/jwt_tokens.go.
package oauth

import "time"

// Client is a dynamically registered OAuth client (spec §4.6 "Dynamic
// Client Registration").
type Client struct {
	ID            string    `db:"id" json:"client_id"`
	Secret        string    `db:"secret" json:"client_secret"`
	RedirectURIs  []string  `db:"-" json:"redirect_uris"`
	RedirectURIsRaw string  `db:"redirect_uris" json:"-"`
	GrantTypes    []string  `db:"-" json:"grant_types"`
	GrantTypesRaw string    `db:"grant_types" json:"-"`
	ResponseTypes []string  `db:"-" json:"response_types"`
	ResponseTypesRaw string `db:"response_types" json:"-"`
	TokenEndpointAuthMethod string `db:"token_endpoint_auth_method" json:"token_endpoint_auth_method"`
	CreatedAt     time.Time `db:"created_at" json:"-"`

	SecretExpiresAt int64 `db:"-" json:"client_secret_expires_at"`
}

// AuthCode is a single-use authorization code bound to the parameters
// presented when it was issued (spec §4.6 "Authorize (POST /authorize)").
type AuthCode struct {
	Code          string    `db:"code"`
	ClientID      string    `db:"client_id"`
	RedirectURI   string    `db:"redirect_uri"`
	CodeChallenge string    `db:"code_challenge"`
	Scope         string    `db:"scope"`
	ExpiresAt     time.Time `db:"expires_at"`
	Consumed      bool      `db:"consumed"`
}

// RefreshToken is stored as a public, indexable ID plus an Argon2id hash of
// its secret half; the plaintext "<id>.<secret>" form is only ever seen by
// the client it was issued to (spec §4.6 "rotates").
type RefreshToken struct {
	ID        string    `db:"id"`
	Hash      string    `db:"hash"`
	ClientID  string    `db:"client_id"`
	Subject   string    `db:"subject"`
	Scope     string    `db:"scope"`
	ExpiresAt time.Time `db:"expires_at"`
}

// AccessTokenTTL and friends (spec §3 "OAuth entities").
const (
	AccessTokenTTL  = 1 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
	AuthCodeTTL     = 10 * time.Minute
)

// DefaultScope is used when a client omits the scope parameter.
const DefaultScope = "mcp"

// ProtectedResourceScopes lists the scopes advertised by the protected
// resource metadata document (spec §4.6).
var ProtectedResourceScopes = []string{"mcp", "mcp:read", "mcp:write"}
