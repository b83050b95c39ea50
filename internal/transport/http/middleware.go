package http

import (
	"context"
	"net/http"
	"strings"

	"hanzi-quiz-service/internal/domain"
)

// TokenVerifier resolves a bearer token to a username.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type contextKey string

const userKey contextKey = "user"

// tokenFromRequest accepts "Authorization: Bearer <jwt>" or a token query
// parameter, which browsers need for websocket upgrades.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// AuthMiddleware rejects requests without a valid token and stores the username in the context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.Verify(tokenFromRequest(r))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: domain.ErrInvalidToken.Error(), Code: "invalid_token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

func userFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}
