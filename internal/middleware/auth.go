package middleware

import (
	"net/http"
	"strings"

	"github.com/okuznetsov/balance-service/internal/api/httpx"
	"github.com/okuznetsov/balance-service/internal/auth"
)

// Auth verifies the HS256 bearer token on mutating endpoints. A nil
// token manager disables the check entirely.
func Auth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	if tm == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				httpx.WriteFieldErrors(w, http.StatusUnauthorized, "detail", "missing bearer token")
				return
			}
			token := strings.TrimSpace(ah[len("Bearer "):])
			if _, err := tm.Parse(token); err != nil {
				httpx.WriteFieldErrors(w, http.StatusUnauthorized, "detail", "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
