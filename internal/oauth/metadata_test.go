package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleAuthorizationServerMetadata(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	req.Host = "brain.example.test"
	rec := httptest.NewRecorder()

	s.HandleAuthorizationServerMetadata(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["issuer"] != "http://brain.example.test" {
		t.Fatalf("got issuer %v", body["issuer"])
	}
	if body["token_endpoint"] != "http://brain.example.test/token" {
		t.Fatalf("got token_endpoint %v", body["token_endpoint"])
	}
}

func TestHandleProtectedResourceMetadata(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource/mcp", nil)
	req.Host = "brain.example.test"
	rec := httptest.NewRecorder()

	s.HandleProtectedResourceMetadata(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["resource"] != "http://brain.example.test/mcp" {
		t.Fatalf("got resource %v", body["resource"])
	}
}
