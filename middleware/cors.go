package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to call the API. "*" allows any
	// origin. Default: ["*"]
	AllowOrigins []string

	// AllowMethods lists the request methods answered in preflights.
	// Default: GET, POST, PUT, DELETE, OPTIONS
	AllowMethods []string

	// AllowHeaders lists the request headers answered in preflights.
	// Default: Content-Type, X-Api-Key, X-Request-ID
	AllowHeaders []string

	// ExposeHeaders lists the response headers scripts may read.
	// Default: X-Request-ID
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials.
	AllowCredentials bool

	// MaxAge is how long, in seconds, a preflight result may be cached.
	// Zero leaves the header unset.
	MaxAge int
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "X-Api-Key", "X-Request-ID"}
	defaultCORSExpose  = []string{"X-Request-ID"}
)

// CORS returns an HTTP middleware answering preflight requests and setting
// CORS headers on dispatched calls. A nil config allows every origin with the
// default methods and headers.
//
// With AllowCredentials and a wildcard origin, the requesting origin is
// echoed back instead of "*", which browsers reject in that combination.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &CORSConfig{}
	}

	origins := orDefault(cfg.AllowOrigins, []string{"*"})
	wildcard := slices.Contains(origins, "*")
	methods := strings.Join(orDefault(cfg.AllowMethods, defaultCORSMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowHeaders, defaultCORSHeaders), ", ")
	expose := strings.Join(orDefault(cfg.ExposeHeaders, defaultCORSExpose), ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case origin != "" && !wildcard && slices.Contains(origins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			case wildcard && origin != "" && cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			}
			if cfg.AllowCredentials && h.Get("Access-Control-Allow-Origin") != "" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return def
	}
	return values
}
