package oauth

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brain.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetClient(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	client := Client{
		ID:                      "brain_test_client",
		Secret:                  "shh",
		RedirectURIs:            []string{"http://127.0.0.1:8080/callback"},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "client_secret_post",
		CreatedAt:               time.Now(),
	}
	if err := store.CreateClient(ctx, client); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	got, err := store.GetClient(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if got.Secret != client.Secret {
		t.Fatalf("got secret %q, want %q", got.Secret, client.Secret)
	}
	if len(got.RedirectURIs) != 1 || got.RedirectURIs[0] != client.RedirectURIs[0] {
		t.Fatalf("got redirect uris %v, want %v", got.RedirectURIs, client.RedirectURIs)
	}
	if len(got.GrantTypes) != 2 {
		t.Fatalf("got grant types %v, want 2 entries", got.GrantTypes)
	}
}

func TestGetClientNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetClient(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumeAuthCodeRejectsDoubleSpend(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ac := AuthCode{
		Code:          "code123",
		ClientID:      "brain_test_client",
		RedirectURI:   "http://127.0.0.1:8080/callback",
		CodeChallenge: "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		Scope:         "mcp",
		ExpiresAt:     time.Now().Add(AuthCodeTTL),
	}
	if err := store.CreateAuthCode(ctx, ac); err != nil {
		t.Fatalf("CreateAuthCode: %v", err)
	}

	consumed, err := store.ConsumeAuthCode(ctx, ac.Code)
	if err != nil {
		t.Fatalf("first ConsumeAuthCode: %v", err)
	}
	if consumed.ClientID != ac.ClientID {
		t.Fatalf("got client id %q, want %q", consumed.ClientID, ac.ClientID)
	}

	if _, err := store.ConsumeAuthCode(ctx, ac.Code); err != ErrCodeUnusable {
		t.Fatalf("expected ErrCodeUnusable on double-spend, got %v", err)
	}
}

func TestConsumeAuthCodeRejectsExpired(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ac := AuthCode{
		Code:          "expiredcode",
		ClientID:      "brain_test_client",
		RedirectURI:   "http://127.0.0.1:8080/callback",
		CodeChallenge: "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		Scope:         "mcp",
		ExpiresAt:     time.Now().Add(-time.Minute),
	}
	if err := store.CreateAuthCode(ctx, ac); err != nil {
		t.Fatalf("CreateAuthCode: %v", err)
	}
	if _, err := store.ConsumeAuthCode(ctx, ac.Code); err != ErrCodeUnusable {
		t.Fatalf("expected ErrCodeUnusable for expired code, got %v", err)
	}
}

func TestRotateRefreshTokenReplacesOldID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	original := RefreshToken{
		ID:        "rt1",
		Hash:      "argon2id$1$65536$4$salt$hash",
		ClientID:  "brain_test_client",
		Subject:   "brain_test_client",
		Scope:     "mcp",
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := store.CreateRefreshToken(ctx, original); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	next := original
	next.ID = "rt2"
	next.Hash = "argon2id$1$65536$4$salt2$hash2"
	if err := store.RotateRefreshToken(ctx, original.ID, next); err != nil {
		t.Fatalf("RotateRefreshToken: %v", err)
	}

	if _, err := store.FindRefreshTokenByID(ctx, original.ID); err != ErrNotFound {
		t.Fatalf("expected old refresh token id to be gone, got %v", err)
	}
	got, err := store.FindRefreshTokenByID(ctx, next.ID)
	if err != nil {
		t.Fatalf("FindRefreshTokenByID(next): %v", err)
	}
	if got.Hash != next.Hash {
		t.Fatalf("got hash %q, want %q", got.Hash, next.Hash)
	}
}

func TestRotateRefreshTokenRejectsUnknownID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	next := RefreshToken{
		ID:        "rt-new",
		Hash:      "argon2id$1$65536$4$salt$hash",
		ClientID:  "brain_test_client",
		Subject:   "brain_test_client",
		Scope:     "mcp",
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := store.RotateRefreshToken(ctx, "does-not-exist", next); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindRefreshTokenByID(ctx, next.ID); err != ErrNotFound {
		t.Fatal("expected rotation to have rolled back, leaving the new id absent")
	}
}

func TestCleanupExpiredRemovesStaleRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	expiredCode := AuthCode{
		Code: "stale", ClientID: "c", RedirectURI: "http://x/cb", CodeChallenge: "x",
		Scope: "mcp", ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.CreateAuthCode(ctx, expiredCode); err != nil {
		t.Fatalf("CreateAuthCode: %v", err)
	}
	expiredToken := RefreshToken{
		ID: "stale-rt", Hash: "argon2id$1$65536$4$salt$hash", ClientID: "c",
		Subject: "c", Scope: "mcp", ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.CreateRefreshToken(ctx, expiredToken); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}

	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}

	if _, err := store.ConsumeAuthCode(ctx, expiredCode.Code); err != ErrNotFound {
		t.Fatalf("expected expired code to be deleted, got %v", err)
	}
	if _, err := store.FindRefreshTokenByID(ctx, expiredToken.ID); err != ErrNotFound {
		t.Fatalf("expected expired refresh token to be deleted, got %v", err)
	}
}
