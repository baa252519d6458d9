package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"vulnreport/internal/platform/token"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

type contextKeyUsername struct{}
type contextKeyRole struct{}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(contextKeyUsername{}).(string)
	return username
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(contextKeyRole{}).(string)
	return role
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's username and role in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.Validate(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyUsername{}, claims.Username)
			ctx = context.WithValue(ctx, contextKeyRole{}, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
