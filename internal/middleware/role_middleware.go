package middleware

import (
	"crypto/subtle"
	"net/http"

	"fieldops-server/internal/domain"
	"fieldops-server/pkg/response"
)

// CronKeyHeader authenticates scheduled jobs.
const CronKeyHeader = "X-Cron-Key"

// RequireRole rejects requests whose role ranks below required. It must run
// after AuthMiddleware.
func RequireRole(required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !GetRole(r).Allows(required) {
				response.Forbidden(w, "Permessi insufficienti")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CronKeyMiddleware admits a request carrying the cron key, or else a
// bearer token with at least the required role. An empty cronKey disables
// the key path.
func CronKeyMiddleware(cronKey string, validator TokenValidator, required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(CronKeyHeader); cronKey != "" && key != "" {
				if subtle.ConstantTimeCompare([]byte(key), []byte(cronKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				response.Unauthorized(w, "Invalid cron key")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing cron key or token")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}
			if !domain.Role(claims.Role).Allows(required) {
				response.Forbidden(w, "Permessi insufficienti")
				return
			}

			next.ServeHTTP(w, withClaims(r, claims))
		})
	}
}
