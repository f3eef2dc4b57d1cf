package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// WindowLimit is a fixed-window rate limit: at most Requests per Window.
type WindowLimit struct {
	Requests int
	Window   time.Duration
}

// Default per-principal limits for runtime capability endpoints.
// Override with: RATELIMIT_RUNTIME_WRITES_REQUESTS / _WINDOW_SEC and
// RATELIMIT_ASSET_SIGN_REQUESTS / _WINDOW_SEC.
var (
	RuntimeWriteLimit = WindowLimit{Requests: 60, Window: time.Minute}
	AssetSignLimit    = WindowLimit{Requests: 20, Window: time.Minute}
)

func init() {
	RuntimeWriteLimit = ParseWindowLimitFromEnv("RUNTIME_WRITES", RuntimeWriteLimit)
	AssetSignLimit = ParseWindowLimitFromEnv("ASSET_SIGN", AssetSignLimit)
}

// ParseWindowLimitFromEnv reads a window limit from environment variables
// following the pattern RATELIMIT_{prefix}_{field} (useful for testing).
func ParseWindowLimitFromEnv(prefix string, def WindowLimit) WindowLimit {
	limit := def

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			limit.Requests = n
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			limit.Window = time.Duration(sec) * time.Second
		}
	}

	return limit
}

// WindowResult is the outcome of counting one request against a window.
type WindowResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// CounterStore counts requests per key in fixed windows. The in-memory
// implementation backs single-instance deployments and tests; a shared
// cache can implement the same interface for multi-instance deployments.
type CounterStore interface {
	// Increment counts one request against key and reports whether it is
	// within limit. Must be safe for concurrent use: two simultaneous
	// callers at the boundary must not both be allowed.
	Increment(key string, limit WindowLimit, now time.Time) WindowResult
}

type counterWindow struct {
	count   int
	resetAt time.Time
}

// MemoryCounterStore is a process-local CounterStore.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*counterWindow
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{windows: make(map[string]*counterWindow)}
}

func (s *MemoryCounterStore) Increment(key string, limit WindowLimit, now time.Time) WindowResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	win, ok := s.windows[key]
	if !ok || !now.Before(win.resetAt) {
		win = &counterWindow{resetAt: now.Add(limit.Window)}
		s.windows[key] = win
		s.maybeSweepLocked(now)
	}

	win.count++
	remaining := limit.Requests - win.count
	if remaining < 0 {
		remaining = 0
	}

	return WindowResult{
		Allowed:   win.count <= limit.Requests,
		Remaining: remaining,
		ResetAt:   win.resetAt,
	}
}

// maybeSweepLocked drops expired windows so ephemeral keys don't accumulate.
func (s *MemoryCounterStore) maybeSweepLocked(now time.Time) {
	if len(s.windows) < 1024 {
		return
	}
	for key, win := range s.windows {
		if !now.Before(win.resetAt) {
			delete(s.windows, key)
		}
	}
}

// TooManyRequests writes the 429 envelope with the rate-limit header
// contract: retry-after (seconds), x-rate-limit-remaining and
// x-rate-limit-reset (epoch seconds).
func TooManyRequests(w http.ResponseWriter, r *http.Request, res WindowResult, now time.Time) {
	retryAfter := int(res.ResetAt.Sub(now).Seconds() + 0.999)
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.Header().Set("X-Rate-Limit-Remaining", fmt.Sprintf("%d", res.Remaining))
	w.Header().Set("X-Rate-Limit-Reset", fmt.Sprintf("%d", res.ResetAt.Unix()))

	Error(w, r, http.StatusTooManyRequests, CodeTooManyRequests, "Rate limit exceeded. Please try again later.")
}
