package auth

import (
	"context"
	"net/http"

	"pulsechat/pkg/utils"
)

type ctxUserKey struct{}

// WithUserID returns a context carrying the verified user identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}

// UserIDFromContext returns the verified user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireUser wraps a handler and rejects requests without a verified
// identity in context. The gateway middleware normally guarantees this;
// RequireUser is the belt for handlers mounted outside it.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
