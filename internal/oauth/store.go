package oauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth_clients (
	id TEXT PRIMARY KEY,
	secret TEXT NOT NULL,
	redirect_uris TEXT NOT NULL,
	grant_types TEXT NOT NULL,
	response_types TEXT NOT NULL,
	token_endpoint_auth_method TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS oauth_codes (
	code TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	redirect_uri TEXT NOT NULL,
	code_challenge TEXT NOT NULL,
	scope TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	consumed BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
	id TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	client_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	scope TEXT NOT NULL,
	expires_at DATETIME NOT NULL
);
`

// Store persists OAuth entities in a shared SQLite database (spec §6
// "OAuth entities live in a shared SQLite database at <brainDir>/brain.db").
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// its schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open oauth db: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate oauth db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateClient inserts a newly registered client.
func (s *Store) CreateClient(ctx context.Context, c Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_clients (id, secret, redirect_uris, grant_types, response_types, token_endpoint_auth_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Secret, strings.Join(c.RedirectURIs, ","), strings.Join(c.GrantTypes, ","),
		strings.Join(c.ResponseTypes, ","), c.TokenEndpointAuthMethod, time.Now())
	return err
}

// GetClient looks up a client by id.
func (s *Store) GetClient(ctx context.Context, id string) (Client, error) {
	var row Client
	err := s.db.GetContext(ctx, &row, `
		SELECT id, secret, redirect_uris, grant_types, response_types, token_endpoint_auth_method, created_at
		FROM oauth_clients WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	row.RedirectURIs = splitNonEmpty(row.RedirectURIsRaw)
	row.GrantTypes = splitNonEmpty(row.GrantTypesRaw)
	row.ResponseTypes = splitNonEmpty(row.ResponseTypesRaw)
	return row, nil
}

// ErrNotFound is returned when a lookup finds nothing.
var ErrNotFound = errors.New("oauth: not found")

// CreateAuthCode inserts a freshly issued authorization code.
func (s *Store) CreateAuthCode(ctx context.Context, ac AuthCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_codes (code, client_id, redirect_uri, code_challenge, scope, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		ac.Code, ac.ClientID, ac.RedirectURI, ac.CodeChallenge, ac.Scope, ac.ExpiresAt)
	return err
}

// ConsumeAuthCode atomically reads and marks a code consumed inside one
// transaction, so a code can never be redeemed twice (spec §4.6 "atomically
// consumes the code").
func (s *Store) ConsumeAuthCode(ctx context.Context, code string) (AuthCode, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return AuthCode{}, err
	}
	defer tx.Rollback()

	var ac AuthCode
	err = tx.GetContext(ctx, &ac, `SELECT code, client_id, redirect_uri, code_challenge, scope, expires_at, consumed FROM oauth_codes WHERE code = ?`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AuthCode{}, ErrNotFound
		}
		return AuthCode{}, err
	}
	if ac.Consumed || time.Now().After(ac.ExpiresAt) {
		return AuthCode{}, ErrCodeUnusable
	}
	if _, err := tx.ExecContext(ctx, `UPDATE oauth_codes SET consumed = 1 WHERE code = ?`, code); err != nil {
		return AuthCode{}, err
	}
	if err := tx.Commit(); err != nil {
		return AuthCode{}, err
	}
	return ac, nil
}

// ErrCodeUnusable signals a code is already consumed or has expired.
var ErrCodeUnusable = errors.New("oauth: code already consumed or expired")

// CreateRefreshToken inserts a new hashed refresh token.
func (s *Store) CreateRefreshToken(ctx context.Context, rt RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_refresh_tokens (id, hash, client_id, subject, scope, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.Hash, rt.ClientID, rt.Subject, rt.Scope, rt.ExpiresAt)
	return err
}

// FindRefreshTokenByID looks up a refresh token by its public id.
func (s *Store) FindRefreshTokenByID(ctx context.Context, id string) (RefreshToken, error) {
	var rt RefreshToken
	err := s.db.GetContext(ctx, &rt, `SELECT id, hash, client_id, subject, scope, expires_at FROM oauth_refresh_tokens WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return RefreshToken{}, ErrNotFound
	}
	return rt, err
}

// RotateRefreshToken atomically deletes the old token by id and inserts its
// replacement in one transaction (spec §4.6 "atomically rotates").
func (s *Store) RotateRefreshToken(ctx context.Context, oldID string, next RefreshToken) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE id = ?`, oldID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO oauth_refresh_tokens (id, hash, client_id, subject, scope, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		next.ID, next.Hash, next.ClientID, next.Subject, next.Scope, next.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// CleanupExpired deletes expired codes and refresh tokens (spec §4.6
// "Cleanup").
func (s *Store) CleanupExpired(ctx context.Context) error {
	now := time.Now()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_codes WHERE expires_at < ?`, now); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE expires_at < ?`, now)
	return err
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
