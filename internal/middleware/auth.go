package middleware

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"photo-indexer/internal/logging"
	"photo-indexer/internal/metrics"
)

// AdminUser is the only user name accepted by BasicAuth.
const AdminUser = "admin"

// BasicAuth guards a handler with HTTP basic auth checked against a bcrypt
// password hash. An empty hash disables the check.
func BasicAuth(passwordHash string) func(http.Handler) http.Handler {
	hash := []byte(passwordHash)

	return func(next http.Handler) http.Handler {
		if len(hash) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				unauthorized(w)
				return
			}

			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(AdminUser)) == 1
			passErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
			if !userOK || passErr != nil {
				logging.Warn("Failed admin authentication from %s", sanitizeLogField(getClientIP(r)))
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				unauthorized(w)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="photo-indexer", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
