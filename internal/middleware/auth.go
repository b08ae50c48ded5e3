package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
)

const APIKeyHeader = "X-API-Key"

// APIKeyAuth validates the admin API key header against the configured keys.
func APIKeyAuth(keys []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)

			if apiKey == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized: API key required")
				return
			}

			valid := false
			for _, validKey := range keys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
					valid = true
					break
				}
			}

			if !valid {
				httpx.WriteError(w, http.StatusForbidden, "Forbidden: Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminSession stores the admin session id from the request header in the context.
func AdminSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.NormalizeSessionID(r.Header.Get(auth.SessionHeader))
		next.ServeHTTP(w, r.WithContext(auth.WithSessionID(r.Context(), id)))
	})
}
