package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/usethallo/thallo-api/internal/handler"
	"github.com/usethallo/thallo-api/internal/infra/observability"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret"

func newTestRouter(t *testing.T, rateLimitPerMin int) http.Handler {
	t.Helper()
	return handler.NewRouter(handler.Services{}, testJWTSecret, rateLimitPerMin, observability.NewMetrics(), zap.NewNop())
}

func signToken(t *testing.T, sub string, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMissingToken(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/v1/score", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/v1/score", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthWrongSecret(t *testing.T) {
	router := newTestRouter(t, 30)

	req := httptest.NewRequest(http.MethodGet, "/v1/score", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", "wrong-secret"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	// A zero budget rejects the very first authenticated request, which
	// also proves the token made it past the auth middleware.
	router := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/score", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", testJWTSecret))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}
