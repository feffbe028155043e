package middleware

import (
	"net/http"
	"os"
	"strings"
)

// allowedOrigins is the set of origins that may call the API from a browser.
type allowedOrigins map[string]struct{}

// loadAllowedOrigins reads the comma-separated WEB_ALLOWED_ORIGINS variable.
func loadAllowedOrigins() allowedOrigins {
	origins := make(allowedOrigins)
	for _, o := range strings.Split(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}

// allow reports whether an origin should receive CORS headers. Localhost
// origins on any port always pass so the console works in development.
func (a allowedOrigins) allow(origin string) bool {
	if origin == "" {
		return false
	}
	for _, scheme := range []string{"http://", "https://"} {
		rest := strings.TrimPrefix(origin, scheme)
		if rest != origin && (rest == "localhost" || strings.HasPrefix(rest, "localhost:")) {
			return true
		}
	}
	_, ok := a[origin]
	return ok
}

// CORS returns middleware that handles cross-origin requests with an origin
// whitelist taken from WEB_ALLOWED_ORIGINS.
func CORS() func(http.Handler) http.Handler {
	allowed := loadAllowedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed.allow(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
