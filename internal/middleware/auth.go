package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CronAuth guards the trigger endpoint with a shared secret. When the
// configured secret is empty the check is disabled, matching how the
// processor behaves when CRON_SECRET is unset.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			// Constant-time comparison to prevent timing attacks
			if auth == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
