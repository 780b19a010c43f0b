package middleware

import (
	"context"
	"net/http"
	"strings"

	"parkease-api/internal/apperr"
	"parkease-api/internal/auth"
)

type ctxKey string

const userIDKey ctxKey = "uid"

// UserID returns the verified caller id placed by Auth, or "" for
// unauthenticated requests.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

// WithUserID is exported for tests that bypass the token check.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey, uid)
}

// Auth verifies the bearer token and stashes the subject user id in
// the request context. Role is not trusted from the token; handlers
// re-derive it through the access gate.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				WriteError(w, apperr.New(apperr.Unauthenticated, "missing bearer token"))
				return
			}
			uid, err := auth.ParseToken(raw, secret)
			if err != nil {
				WriteError(w, apperr.New(apperr.Unauthenticated, "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}
