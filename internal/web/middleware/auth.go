package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/web/auth"
)

// RequireAdmin rejects requests without a valid admin bearer token
func RequireAdmin(admin *auth.Admin, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !admin.Enabled() {
				writeError(w, http.StatusServiceUnavailable, "admin_disabled", "Admin access is not configured")
				return
			}

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="faithdive"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authorization required")
				return
			}

			claims, err := admin.Validate(token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					logger.Error("admin token check failed", RequestIDField(r.Context()), zap.Error(err))
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="faithdive", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
