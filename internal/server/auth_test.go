package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthTokensIssueAndValidate(t *testing.T) {
	tokens := NewAuthTokens(time.Hour)
	token, expiresAt := tokens.Issue("user-1")

	if expiresAt.Before(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", expiresAt)
	}

	userID, ok := tokens.ValidateToken(nil, token)
	if !ok || userID != "user-1" {
		t.Fatalf("ValidateToken: got (%q, %v), want (\"user-1\", true)", userID, ok)
	}
}

func TestAuthTokensValidateUnknownToken(t *testing.T) {
	tokens := NewAuthTokens(time.Hour)
	if _, ok := tokens.ValidateToken(nil, "missing"); ok {
		t.Fatalf("expected unknown token to be invalid")
	}
}

func TestAuthTokensExpiry(t *testing.T) {
	tokens := NewAuthTokens(-time.Minute)
	token, _ := tokens.Issue("user-1")
	if _, ok := tokens.ValidateToken(nil, token); ok {
		t.Fatalf("expected already-expired token to be invalid")
	}
}

func TestAuthTokensRevoke(t *testing.T) {
	tokens := NewAuthTokens(time.Hour)
	token, _ := tokens.Issue("user-1")
	tokens.Revoke(token)
	if _, ok := tokens.ValidateToken(nil, token); ok {
		t.Fatalf("expected revoked token to be invalid")
	}
}

func TestAuthTokensExpiresIn(t *testing.T) {
	tokens := NewAuthTokens(time.Hour)
	token, _ := tokens.Issue("user-1")
	remaining := tokens.ExpiresIn(token)
	if remaining <= 0 || remaining > 3600 {
		t.Fatalf("expected remaining seconds in (0, 3600], got %d", remaining)
	}
	if tokens.ExpiresIn("missing") != 0 {
		t.Fatalf("expected 0 remaining for unknown token")
	}
}

func TestBearerTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	if got := bearerTokenFromRequest(req); got != "abc123" {
		t.Fatalf("bearerTokenFromRequest: got %q, want %q", got, "abc123")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := bearerTokenFromRequest(req2); got != "" {
		t.Fatalf("expected empty token for missing header, got %q", got)
	}
}
