package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters tuned for server-side hashing (spec §6 "Generated
// secrets ... use a cryptographically secure random source"), matching the
// cost profile used elsewhere in the stack for refresh-token hashing.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// TokenManager issues JWT access tokens and hashes/verifies refresh tokens
// with Argon2id.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager constructs a TokenManager. issuer is written into the "iss"
// claim of every access token it issues; ParseAccessToken does not check it.
func NewTokenManager(secret []byte, issuer string) *TokenManager {
	return &TokenManager{secret: secret, issuer: issuer}
}

// AccessClaims is the set of claims carried by an issued access token.
type AccessClaims struct {
	Subject  string
	ClientID string
	Scope    string
}

// IssueAccessToken signs a JWT access token valid for AccessTokenTTL.
func (m *TokenManager) IssueAccessToken(claims AccessClaims) (string, time.Time, error) {
	expiresAt := time.Now().Add(AccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       claims.Subject,
		"client_id": claims.ClientID,
		"scope":     claims.Scope,
		"iss":       m.issuer,
		"exp":       expiresAt.Unix(),
		"iat":       time.Now().Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates the signature and expiry of an access token
// and returns its claims.
func (m *TokenManager) ParseAccessToken(raw string) (AccessClaims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return AccessClaims{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	clientID, _ := claims["client_id"].(string)
	scope, _ := claims["scope"].(string)
	return AccessClaims{Subject: sub, ClientID: clientID, Scope: scope}, nil
}

// GenerateRefreshToken returns a fresh random refresh token in
// "<id>.<secret>" form (id is the public lookup key, stored in the
// clear; secret is never stored, only its Argon2id hash), the id, the
// hash, and the token's expiry.
func (m *TokenManager) GenerateRefreshToken() (plain, id, hash string, expiresAt time.Time, err error) {
	idBuf := make([]byte, 16)
	if _, err = rand.Read(idBuf); err != nil {
		return
	}
	secretBuf := make([]byte, 32)
	if _, err = rand.Read(secretBuf); err != nil {
		return
	}
	id = hex.EncodeToString(idBuf)
	secret := base64.RawURLEncoding.EncodeToString(secretBuf)
	plain = id + "." + secret
	hash, err = HashToken(secret)
	expiresAt = time.Now().Add(RefreshTokenTTL)
	return
}

// SplitRefreshToken parses a presented "<id>.<secret>" refresh token.
func SplitRefreshToken(token string) (id, secret string, ok bool) {
	idx := strings.IndexByte(token, '.')
	if idx <= 0 || idx == len(token)-1 {
		return "", "", false
	}
	return token[:idx], token[idx+1:], true
}

// HashToken encodes token using Argon2id: argon2id$time$memory$threads$salt$hash.
func HashToken(token string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(token), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s", argonTime, argonMemory, argonThreads, b64Salt, b64Hash), nil
}

// VerifyToken compares a plain token against an Argon2id-encoded hash in
// constant time.
func VerifyToken(token, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(token), salt, params.time, params.memory, params.threads, uint32(len(hash)))
	if len(computed) != len(hash) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return argonParams{}, nil, nil, fmt.Errorf("invalid hash format")
	}
	var params argonParams
	var err error
	if params.time, err = parseUint32(parts[1]); err != nil {
		return argonParams{}, nil, nil, err
	}
	if params.memory, err = parseUint32(parts[2]); err != nil {
		return argonParams{}, nil, nil, err
	}
	threads, err := parseUint32(parts[3])
	if err != nil {
		return argonParams{}, nil, nil, err
	}
	if threads == 0 || threads > 255 {
		return argonParams{}, nil, nil, fmt.Errorf("invalid thread count: must be between 1 and 255")
	}
	params.threads = uint8(threads)
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argonParams{}, nil, nil, err
	}
	return params, salt, hash, nil
}

func parseUint32(value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// NewClientID generates a dynamically registered client id: prefix
// "brain_" + 32 hex characters (spec §4.6 "Dynamic Client Registration").
func NewClientID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "brain_" + hex.EncodeToString(buf), nil
}

// NewClientSecret generates a 64-hex-character client secret.
func NewClientSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewAuthCode generates a 32-hex-character authorization code.
func NewAuthCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
