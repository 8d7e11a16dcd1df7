package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyMiddleware enforces the X-API-Key header when keys is non-empty.
func APIKeyMiddleware(keys []string) func(http.Handler) http.Handler {
	var allow [][]byte
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			allow = append(allow, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allow) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if key == "" {
				http.Error(w, "missing api key", http.StatusUnauthorized)
				return
			}
			for _, k := range allow {
				if subtle.ConstantTimeCompare([]byte(key), k) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "invalid api key", http.StatusForbidden)
		})
	}
}
