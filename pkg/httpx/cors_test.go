package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestApplyCORS(t *testing.T) {
	t.Parallel()

	allowed := []string{"https://runtime.example.com"}

	t.Run("no origin header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		require.False(t, httpx.ApplyCORS(w, r, allowed))
		require.Equal(t, "Origin", w.Header().Get("Vary"))
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow-listed origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://runtime.example.com")

		require.True(t, httpx.ApplyCORS(w, r, allowed))
		require.Equal(t, "https://runtime.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
	})

	t.Run("unlisted origin gets no allow headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://evil.example.com")

		require.False(t, httpx.ApplyCORS(w, r, allowed))
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "Origin", w.Header().Get("Vary"))
	})
}

func TestPreflightHandler(t *testing.T) {
	t.Parallel()

	h := httpx.PreflightHandler([]string{"https://runtime.example.com"})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/v1/runtime/progress", nil)
	r.Header.Set("Origin", "https://runtime.example.com")
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://runtime.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.ClientIP(r))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.1:12345"
		r.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.ClientIP(r))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.1:12345"
		r.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.ClientIP(r))
	})
}

func TestRateLimitByIP(t *testing.T) {
	limit := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		httpx.RateLimitByIP(limit),
	)

	for i := range 2 {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = "198.51.100.7:1000"
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "198.51.100.7:1000"
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.Equal(t, "0", w.Header().Get("X-Rate-Limit-Remaining"))
	require.NotEmpty(t, w.Header().Get("X-Rate-Limit-Reset"))
}
