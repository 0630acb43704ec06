package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/session"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

// authToken is one issued bearer token's bookkeeping.
type authToken struct {
	userID    string
	expiresAt time.Time
}

// AuthTokens is the institutional server's bearer-token registry,
// spec §4.9's "session token" returned by /auth/login. It is distinct
// from internal/session.Store, which binds the symmetric encryption
// key a token's holder may separately establish via /auth/key_exchange
// — a token authenticates the caller, a session record encrypts their
// traffic, and one user may hold both without either depending on the
// other's internals.
type AuthTokens struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]authToken
}

// NewAuthTokens creates a token registry with the given time-to-live.
func NewAuthTokens(ttl time.Duration) *AuthTokens {
	return &AuthTokens{ttl: ttl, m: make(map[string]authToken)}
}

// Issue mints a new bearer token for userID.
func (a *AuthTokens) Issue(userID string) (token string, expiresAt time.Time) {
	token = uuid.NewString()
	expiresAt = time.Now().Add(a.ttl)
	a.mu.Lock()
	a.m[token] = authToken{userID: userID, expiresAt: expiresAt}
	a.mu.Unlock()
	return token, expiresAt
}

// Revoke invalidates a token (logout).
func (a *AuthTokens) Revoke(token string) {
	a.mu.Lock()
	delete(a.m, token)
	a.mu.Unlock()
}

// ValidateToken implements httpapi.SessionValidator.
func (a *AuthTokens) ValidateToken(_ context.Context, token string) (string, bool) {
	a.mu.RLock()
	t, ok := a.m[token]
	a.mu.RUnlock()
	if !ok || time.Now().After(t.expiresAt) {
		return "", false
	}
	return t.userID, true
}

// ExpiresIn returns the remaining seconds of validity for token, or 0
// if unknown/expired.
func (a *AuthTokens) ExpiresIn(token string) int64 {
	a.mu.RLock()
	t, ok := a.m[token]
	a.mu.RUnlock()
	if !ok {
		return 0
	}
	remaining := time.Until(t.expiresAt)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	SessionToken    string `json:"session_token"`
	UserID          string `json:"user_id"`
	ExpiresInSecond int64  `json:"expires_in_seconds"`
}

// handleLogin implements POST /auth/login, spec §6: 200 on success,
// 401 AUTH_FAILED on bad credentials, 403 ACCOUNT_SUSPENDED on a
// correct credential against a deactivated account.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "email and password are required")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case err == postgres.ErrAccountSuspended:
		httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeAccountSuspended, "account suspended")
		return
	case err == postgres.ErrUserNotFound:
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeAuthFailed, "invalid email or password")
		return
	case err != nil:
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeAuthFailed, "invalid email or password")
		return
	}

	token, expiresAt := s.tokens.Issue(user.ID)
	httpapi.WriteJSON(w, http.StatusOK, loginResponse{
		SessionToken:    token,
		UserID:          user.ID,
		ExpiresInSecond: int64(time.Until(expiresAt).Seconds()),
	})
}

type keyExchangeRequest struct {
	SessionToken    string `json:"session_token" validate:"required"`
	ClientPublicKey string `json:"client_public_key" validate:"required"`
}

type keyExchangeResponse struct {
	ServerPublicKey    string `json:"server_public_key"`
	EncryptionEnabled  bool   `json:"encryption_enabled"`
}

// handleKeyExchange implements POST /auth/key_exchange, spec §4.7:
// binds a per-session AES key derived via X25519 ECDH + HKDF-SHA256 to
// the caller's bearer token, so the session-encryption middleware has
// a Record to encrypt/decrypt against for the rest of that token's
// lifetime.
func (s *Server) handleKeyExchange(w http.ResponseWriter, r *http.Request) {
	var req keyExchangeRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "malformed request body")
		return
	}
	if err := s.valid.Struct(req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "session_token and client_public_key are required")
		return
	}

	if _, ok := s.tokens.ValidateToken(r.Context(), req.SessionToken); !ok {
		httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "invalid or expired session")
		return
	}

	clientKey, err := base64.StdEncoding.DecodeString(req.ClientPublicKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "client_public_key must be base64")
		return
	}

	ex, err := session.NewKeyExchange()
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "key exchange failed")
		return
	}
	sharedKey, err := ex.DeriveSharedKey(clientKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeInvalidInput, "invalid client public key")
		return
	}
	record, err := session.NewRecord(req.SessionToken, sharedKey)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "key exchange failed")
		return
	}
	s.sessions.Put(record)

	httpapi.WriteJSON(w, http.StatusOK, keyExchangeResponse{
		ServerPublicKey:   base64.StdEncoding.EncodeToString(ex.PublicKey()),
		EncryptionEnabled: true,
	})
}

// handleLogout implements POST /auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerTokenFromRequest(r)
	s.tokens.Revoke(token)
	s.sessions.Delete(token)
	w.WriteHeader(http.StatusOK)
}

type validateResponse struct {
	Valid           bool   `json:"valid"`
	UserID          string `json:"user_id,omitempty"`
	ExpiresInSecond int64  `json:"expires_in_seconds,omitempty"`
}

// handleValidate implements GET /auth/validate. It is reached only
// after httpapi.RequireBearerAuth has already confirmed the token, so
// a response of {valid: true} is guaranteed here.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpapi.UserIDFromContext(r.Context())
	token := bearerTokenFromRequest(r)
	httpapi.WriteJSON(w, http.StatusOK, validateResponse{
		Valid:           true,
		UserID:          userID,
		ExpiresInSecond: s.tokens.ExpiresIn(token),
	})
}

func bearerTokenFromRequest(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return ""
	}
	return h[len(prefix):]
}
