// Package middleware provides HTTP middleware for the outreach API.
package middleware

import "net/http"

// CORS returns middleware that answers cross-origin requests from the
// configured frontend. A lone "*" entry echoes any origin, but
// credentials are only ever allowed for an explicitly listed origin;
// pairing them with a wildcard-echoed origin would let any site ride
// the operator's cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				exact, wildcard := false, false
				for _, o := range allowedOrigins {
					switch o {
					case origin:
						exact = true
					case "*":
						wildcard = true
					}
				}

				if exact || wildcard {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Add("Vary", "Origin")
					if exact {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
