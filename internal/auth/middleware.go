// ABOUTME: HTTP middleware gating the webhook endpoint on a verified platform token.
// ABOUTME: Extracts the bearer token from the Authorization header and rejects with 401.

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// RequestVerifier is what the middleware needs from a token verifier.
type RequestVerifier interface {
	Verify(ctx context.Context, token string) error
}

// extractBearerToken pulls the bearer token from an Authorization header.
// Returns the token and an error message (empty on success).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware verifies the platform bearer token on every request.
func Middleware(verifier RequestVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				http.Error(w, `{"error":"`+errMsg+`"}`, http.StatusUnauthorized)
				return
			}

			if err := verifier.Verify(r.Context(), token); err != nil {
				logger.Warn("rejected webhook request", "error", err, "remote", r.RemoteAddr)
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
