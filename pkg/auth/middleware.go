package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

type contextKey string

// ClaimsContextKey carries the authenticated user's claims through the
// request context.
const ClaimsContextKey contextKey = "user_claims"

// Middleware validates Bearer tokens and attaches claims to the request
// context. Unauthenticated requests are rejected before reaching handlers.
func (tv *TokenValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := tv.ValidateToken(parts[1])
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext extracts the authenticated claims from a request context
func ClaimsFromContext(ctx context.Context) (*types.UserClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*types.UserClaims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": http.StatusUnauthorized,
	})
}
