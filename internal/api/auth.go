package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Auth selects how callers are identified.
//
// With JWTSecret set, the caller id is the subject of an HS256 bearer token
// and CallerHeader is ignored. Otherwise the caller id is read from
// CallerHeader, optionally behind a static APIToken.
type Auth struct {
	APIToken  string
	JWTSecret string
}

func (a Auth) middleware() func(http.Handler) http.Handler {
	if a.JWTSecret != "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return BearerAuthMiddleware(a.APIToken)
}

// BearerAuthMiddleware requires the configured token. An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerID extracts the authenticated caller of a request.
func (a Auth) callerID(r *http.Request) (uuid.UUID, error) {
	if a.JWTSecret == "" {
		raw := r.Header.Get(CallerHeader)
		if raw == "" {
			return uuid.Nil, scope.ErrNotAuthenticated
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: invalid %s", scope.ErrNotAuthenticated, CallerHeader)
		}
		return id, nil
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return uuid.Nil, scope.ErrNotAuthenticated
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(a.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", scope.ErrNotAuthenticated, err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", scope.ErrNotAuthenticated)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: token subject is not a user id", scope.ErrNotAuthenticated)
	}
	if id == uuid.Nil {
		return uuid.Nil, scope.ErrNotAuthenticated
	}
	return id, nil
}
