package http

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tokenKey contextKey = "bearer-token"

// BearerTokenMiddleware extracts the Authorization bearer token into the
// request context. Requests without one are rejected before reaching a
// handler; the token itself is verified later by the gateway, never logged
// here.
func BearerTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenKey, token)))
	})
}

// TokenFromContext returns the bearer token placed by BearerTokenMiddleware.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
