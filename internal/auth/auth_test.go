package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestParse_ValidToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{
		"sub":     "user-1",
		"name":    "Ada",
		"picture": "https://example.com/ada.png",
	})

	user, err := v.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if user.ID != "user-1" || user.Name != "Ada" || user.PhotoURL != "https://example.com/ada.png" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	v := NewVerifier("test-secret")
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "user-1"})

	if _, err := v.Parse(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestParse_MissingSubject(t *testing.T) {
	v := NewVerifier("test-secret")
	token := signToken(t, "test-secret", jwt.MapClaims{"name": "Ada"})

	if _, err := v.Parse(token); err == nil {
		t.Error("expected error for token without subject claim")
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("test-secret")

	var seen *User
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Garbage token
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", rec.Code)
	}

	// Valid token
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", jwt.MapClaims{"sub": "user-1"}))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
	if seen == nil || seen.ID != "user-1" {
		t.Errorf("expected user in context, got %+v", seen)
	}
}
