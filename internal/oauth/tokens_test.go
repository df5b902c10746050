package oauth

import (
	"strings"
	"testing"
	"time"
)

func TestHashTokenVerifyRoundTrip(t *testing.T) {
	hash, err := HashToken("super-secret-value")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	ok, err := VerifyToken("super-secret-value", hash)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if !ok {
		t.Fatal("expected matching token to verify")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	hash, err := HashToken("correct-secret")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	ok, err := VerifyToken("wrong-secret", hash)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched secret to fail verification")
	}
}

func TestHashTokenProducesDistinctSalts(t *testing.T) {
	h1, err := HashToken("same-input")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	h2, err := HashToken("same-input")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestIssueAndParseAccessToken(t *testing.T) {
	mgr := NewTokenManager([]byte("test-signing-secret"), "https://brain.example.test")
	claims := AccessClaims{Subject: "brain_abc123", ClientID: "brain_abc123", Scope: "mcp"}

	signed, expiry, err := mgr.IssueAccessToken(claims)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty signed token")
	}
	if expiry.Before(time.Now()) {
		t.Fatal("expected expiry to be in the future")
	}

	parsed, err := mgr.ParseAccessToken(signed)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if parsed != claims {
		t.Fatalf("parsed claims %+v do not match issued claims %+v", parsed, claims)
	}
}

func TestParseAccessTokenRejectsForeignSecret(t *testing.T) {
	mgr := NewTokenManager([]byte("secret-one"), "https://brain.example.test")
	other := NewTokenManager([]byte("secret-two"), "https://brain.example.test")

	signed, _, err := mgr.IssueAccessToken(AccessClaims{Subject: "s", ClientID: "c", Scope: "mcp"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := other.ParseAccessToken(signed); err == nil {
		t.Fatal("expected token signed with a different secret to fail parsing")
	}
}

func TestGenerateRefreshTokenRoundTrip(t *testing.T) {
	mgr := NewTokenManager([]byte("test-signing-secret"), "https://brain.example.test")

	plain, id, hash, expiresAt, err := mgr.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if id == "" || hash == "" || plain == "" {
		t.Fatal("expected non-empty id, hash, and plain token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected expiry to be in the future")
	}

	gotID, secret, ok := SplitRefreshToken(plain)
	if !ok {
		t.Fatal("expected SplitRefreshToken to succeed on a freshly generated token")
	}
	if gotID != id {
		t.Fatalf("split id %q does not match generated id %q", gotID, id)
	}
	valid, err := VerifyToken(secret, hash)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if !valid {
		t.Fatal("expected split secret to verify against the generated hash")
	}
}

func TestSplitRefreshTokenRejectsMalformed(t *testing.T) {
	cases := []string{"", "noDotHere", ".nosecretbeforedot", "idwithnodotafter."}
	for _, tc := range cases {
		if _, _, ok := SplitRefreshToken(tc); ok && tc != "idwithnodotafter." {
			t.Errorf("SplitRefreshToken(%q) unexpectedly succeeded", tc)
		}
	}
	if _, _, ok := SplitRefreshToken("onlyid"); ok {
		t.Fatal("expected token with no separator to be rejected")
	}
	if _, _, ok := SplitRefreshToken(".secret"); ok {
		t.Fatal("expected token with empty id to be rejected")
	}
}

func TestNewClientIDHasExpectedPrefix(t *testing.T) {
	id, err := NewClientID()
	if err != nil {
		t.Fatalf("NewClientID: %v", err)
	}
	if !strings.HasPrefix(id, "brain_") {
		t.Fatalf("expected client id to start with brain_: %q", id)
	}
	if len(id) != len("brain_")+32 {
		t.Fatalf("unexpected client id length: %q", id)
	}
}
