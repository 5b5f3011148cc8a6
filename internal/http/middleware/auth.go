package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/psipractice/booking-api/internal/identity"
)

// RequireAuth verifies the bearer token and injects the caller's identity
// into the request context. Handlers never parse tokens themselves.
func RequireAuth(tokens *identity.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := bearerIdentity(tokens, r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin verifies the bearer token and rejects non-admin callers.
func RequireAdmin(tokens *identity.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := bearerIdentity(tokens, r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !id.IsAdmin() {
				writeAuthError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerIdentity(tokens *identity.TokenManager, r *http.Request) (identity.Identity, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return identity.Identity{}, false
	}
	id, err := tokens.VerifyAccess(token)
	if err != nil {
		return identity.Identity{}, false
	}
	return id, true
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
