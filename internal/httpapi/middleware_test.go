package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

type fakeValidator struct {
	tokenToUser map[string]string
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) (string, bool) {
	userID, ok := f.tokenToUser[token]
	return userID, ok
}

func TestRequireBearerAuthRejectsMissingHeader(t *testing.T) {
	handler := RequireBearerAuth(&fakeValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if env.Code != CodeUnauthorized {
		t.Fatalf("code = %q, want %q", env.Code, CodeUnauthorized)
	}
}

func TestRequireBearerAuthRejectsInvalidToken(t *testing.T) {
	validator := &fakeValidator{tokenToUser: map[string]string{}}
	handler := RequireBearerAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireBearerAuthAcceptsValidTokenAndSetsContext(t *testing.T) {
	validator := &fakeValidator{tokenToUser: map[string]string{"good-token": "user-42"}}
	var seenUserID string
	handler := RequireBearerAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seenUserID != "user-42" {
		t.Fatalf("seenUserID = %q, want user-42", seenUserID)
	}
}

func TestRecovererCatchesPanicAndReturns500(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if env.Code != CodeInternal {
		t.Fatalf("code = %q, want %q", env.Code, CodeInternal)
	}
}

func TestRecovererPassesThroughNonPanickingHandler(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
}

func TestWriteErrorProducesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, CodeInvalidInput, "bad request body")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if env.Code != CodeInvalidInput || env.Message != "bad request body" {
		t.Fatalf("envelope = %+v", env)
	}
}
