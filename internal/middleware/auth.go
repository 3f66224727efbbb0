package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/datec-bo/facturaflow/internal/utils"
)

type contextKey string

// AgentContextKey carries the validated token claims of the calling agent.
const AgentContextKey contextKey = "agent"

// Auth verifies the Bearer JWT of tool callers.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AgentContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
