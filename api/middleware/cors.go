package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dashboard
}

// CORS returns middleware that applies the dashboard's allowed origin policy.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id", "Deprecation", "Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

// PublicCORS lets any origin read the manifest endpoints.
func PublicCORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Deprecation", "Link"},
		MaxAge:         300,
	}).Handler
}

// SplitCORS applies the open policy to the public paths and the dashboard
// policy everywhere else. It must run before routing so preflight requests
// reach it.
func SplitCORS(origins []string, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}
	dashboard := CORS(origins)
	open := PublicCORS()
	return func(next http.Handler) http.Handler {
		dashboardNext := dashboard(next)
		openNext := open(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				openNext.ServeHTTP(w, r)
				return
			}
			dashboardNext.ServeHTTP(w, r)
		})
	}
}
