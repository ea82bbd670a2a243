package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// Origins is the set of allowed browser origins. It can be replaced while
// the server runs, which config reloads use.
type Origins struct {
	list atomic.Pointer[[]string]
}

// NewOrigins creates an origin set
func NewOrigins(origins []string) *Origins {
	o := &Origins{}
	o.Set(origins)
	return o
}

// Set replaces the allowed origins
func (o *Origins) Set(origins []string) {
	cp := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			cp = append(cp, origin)
		}
	}
	o.list.Store(&cp)
}

// List returns the current origins
func (o *Origins) List() []string {
	return *o.list.Load()
}

// Allowed reports whether origin may call the API. "*" allows any origin and
// "*.example.com" allows its subdomains.
func (o *Origins) Allowed(origin string) bool {
	for _, allowed := range o.List() {
		if allowed == "*" || allowed == origin {
			return true
		}
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, allowed[1:]) {
			return true
		}
	}
	return false
}

var (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsExposed = strings.Join([]string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}, ", ")
)

const corsMaxAge = 600

// CORS answers preflight requests and sets CORS headers for allowed origins.
// Credentials are allowed, so the matched origin is echoed back rather than "*".
func CORS(origins *Origins) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			allowed := origins.Allowed(origin)
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", corsExposed)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					writeError(w, http.StatusForbidden, "cors_forbidden", "Origin not allowed")
					return
				}
				h.Set("Access-Control-Allow-Methods", corsMethods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
