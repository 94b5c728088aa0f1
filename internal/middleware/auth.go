package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"wttt-sync-worker/pkg/apierror"
)

// NewWorkerAuth returns middleware gating the manual trigger endpoints
// behind the shared worker secret. The engines behind a gated route are
// never invoked on a mismatch.
func NewWorkerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimPrefix(auth, "Bearer ")
			if token == auth {
				writeError(w, apierror.Unauthorized("Authentication required. Use Authorization: Bearer <worker secret>."))
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid worker secret"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
