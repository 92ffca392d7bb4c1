package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signToken(t *testing.T, secret, subject string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTAuth(t *testing.T) {
	h := newHarness("")
	h.srv.auth = Auth{JWTSecret: "supabase-secret"}
	caller := uuid.New()
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"valid", signToken(t, "supabase-secret", caller.String(), jwt.SigningMethodHS256, later), http.StatusOK},
		{"wrong secret", signToken(t, "other", caller.String(), jwt.SigningMethodHS256, later), http.StatusUnauthorized},
		{"expired", signToken(t, "supabase-secret", caller.String(), jwt.SigningMethodHS256, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"unexpected algorithm", signToken(t, "supabase-secret", caller.String(), jwt.SigningMethodHS512, later), http.StatusUnauthorized},
		{"subject not a uuid", signToken(t, "supabase-secret", "service-role", jwt.SigningMethodHS256, later), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.resolver.calls = 0
			req := httptest.NewRequest("GET", "/api/v1/scope", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			// The header is ignored when tokens carry the identity.
			req.Header.Set(CallerHeader, uuid.NewString())
			w := httptest.NewRecorder()
			h.srv.router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantCode == http.StatusOK {
				body := decode[struct {
					Scope struct {
						CallerID uuid.UUID `json:"caller_id"`
					} `json:"scope"`
				}](t, w)
				if body.Scope.CallerID != caller {
					t.Errorf("expected caller from token subject, got %s", body.Scope.CallerID)
				}
			} else if h.resolver.calls != 0 {
				t.Error("resolver must not run for an unauthenticated request")
			}
		})
	}
}
