package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/models"
)

func newAuthService(t *testing.T, expiry time.Duration) *auth.Service {
	t.Helper()
	return auth.NewService(&auth.Config{
		JWTSecret:   []byte("test-secret-key-with-enough-bytes"),
		TokenExpiry: expiry,
	}, nil)
}

func TestAuthenticate(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	mw := NewAuthMiddleware(svc, nil)

	var gotUserID string
	var gotPlan models.Plan
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotPlan = GetUserPlan(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := svc.GenerateToken("user-42", "dev@example.com", models.PlanTeam)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gotUserID != "user-42" {
		t.Errorf("user id = %q, want user-42", gotUserID)
	}
	if gotPlan != models.PlanTeam {
		t.Errorf("plan = %s, want team", gotPlan)
	}
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	mw := NewAuthMiddleware(newAuthService(t, time.Hour), nil)
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	svc := newAuthService(t, -time.Minute)
	mw := NewAuthMiddleware(svc, nil)
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an expired token")
	}))

	token, err := svc.GenerateToken("user-42", "dev@example.com", models.PlanFree)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateRejectsForgedToken(t *testing.T) {
	mw := NewAuthMiddleware(newAuthService(t, time.Hour), nil)
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a forged token")
	}))

	other := auth.NewService(&auth.Config{
		JWTSecret:   []byte("a-completely-different-signing-key"),
		TokenExpiry: time.Hour,
	}, nil)
	token, err := other.GenerateToken("user-42", "dev@example.com", models.PlanFree)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
