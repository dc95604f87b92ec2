// Package api implements the Munin REST API using chi.
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/munin/internal/ratelimit"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware enforces the given policy for one scope. Every
// response carries X-RateLimit-* headers; rejections get a 429 with
// Retry-After.
func RateLimitMiddleware(limiter *ratelimit.Limiter, scope string, cfg ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check(scope, ratelimit.ClientIP(r), cfg)
			ratelimit.SetHeaders(w.Header(), res)
			if !res.Allowed {
				writeJSON(w, http.StatusTooManyRequests,
					errorBody(fmt.Sprintf("rate limit exceeded, retry in %d seconds", res.RetryAfter)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsAllowAll opens an endpoint to cross-origin callers. Used only on the
// public surface, which never exposes private notes.
func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
