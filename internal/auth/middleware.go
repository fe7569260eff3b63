package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hwainwright/gatefold/internal/repositories"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
)

type contextKey string

const (
	sessionClaimsKey contextKey = "session_claims"
	operatorIDKey    contextKey = "operator_id"
)

// SessionClaimsFromContext retrieves the viewer's session claims
func SessionClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*SessionClaims)
	return claims, ok
}

// OperatorIDFromContext retrieves the authenticated operator key id
func OperatorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operatorIDKey).(string)
	return id, ok
}

// SessionAuth gates the heartbeat and capture endpoints on a valid session JWT
func SessionAuth(manager *SessionTokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				pkghttp.WriteUnauthorized(w, "missing session token")
				return
			}

			claims, err := manager.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorAuth gates the monitoring surface on a valid operator API key
func OperatorAuth(manager *OperatorKeyManager, repo repositories.OperatorKeyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plainKey := r.Header.Get("X-API-Key")
			if plainKey == "" {
				pkghttp.WriteUnauthorized(w, "missing API key")
				return
			}

			id, secret, err := manager.Split(plainKey)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid API key")
				return
			}

			key, err := repo.GetByID(r.Context(), id)
			if err != nil || !key.IsActive() || !manager.Verify(key.SecretHash, secret) {
				pkghttp.WriteUnauthorized(w, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
