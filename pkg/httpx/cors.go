package httpx

import (
	"net/http"
	"slices"
)

// Headers an embedded runtime is allowed to send on cross-origin calls.
const corsAllowHeaders = "Authorization, Content-Type, Idempotency-Key, X-Request-Id"
const corsAllowMethods = "GET, POST, OPTIONS"

// ApplyCORS sets Vary: Origin unconditionally and, when the request origin
// is allow-listed, the access-control headers. Returns true when the origin
// is present and allow-listed.
func ApplyCORS(w http.ResponseWriter, r *http.Request, allowed []string) bool {
	w.Header().Add("Vary", "Origin")

	origin := r.Header.Get("Origin")
	if origin == "" || !slices.Contains(allowed, origin) {
		return false
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, Idempotency-Replayed")
	return true
}

// CORSMiddleware applies CORS headers on every response.
func CORSMiddleware(allowed []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ApplyCORS(w, r, allowed)
			next.ServeHTTP(w, r)
		})
	}
}

// PreflightHandler answers OPTIONS with 204 and the CORS headers.
func PreflightHandler(allowed []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ApplyCORS(w, r, allowed)
		w.WriteHeader(http.StatusNoContent)
	})
}
