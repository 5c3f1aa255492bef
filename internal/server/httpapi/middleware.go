package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dpolyakov/minimart/internal/server/auth"
	"github.com/dpolyakov/minimart/internal/server/models"
)

// TokenVerifier is the slice of the auth service the middleware needs.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Role   string
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the identity attached by RequireAuth or
// OptionalAuth, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Middleware is the auth gate in front of protected routes.
type Middleware struct {
	verifier TokenVerifier
}

func NewMiddleware(verifier TokenVerifier) *Middleware {
	return &Middleware{verifier: verifier}
}

const bearerPrefix = "Bearer "

// bearerToken extracts the token from the Authorization header. The header
// must start with exactly "Bearer "; anything else is rejected rather than
// guessed at.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the caller's identity to the context for downstream handlers.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			Unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			Unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireAuth. Authenticated callers without
// the ADMIN role get 403.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			Unauthorized(w, "missing bearer token")
			return
		}
		if id.Role != models.RoleAdmin {
			Forbidden(w, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth attaches an identity when a valid bearer token is present
// and silently proceeds without one otherwise. It never blocks a request.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if claims, err := m.verifier.VerifyAccessToken(token); err == nil {
				ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}
