package httpx

import (
	"sync"
	"time"
)

// IdempotencyKeyHeader opts a write request into replay suppression.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyReplayedHeader marks a short-circuited replay response.
const IdempotencyReplayedHeader = "Idempotency-Replayed"

// DefaultIdempotencyTTL is how long a recorded key suppresses re-execution.
const DefaultIdempotencyTTL = 10 * time.Minute

// IdempotencyStore remembers recently completed write keys. A key is only
// recorded after its write succeeds, so a failed request never blocks the
// client's corrected retry. Check and record are therefore separate steps;
// two concurrent requests with the same fresh key may both execute, which is
// safe because every suppressed write is an upsert or append.
//
// The in-memory implementation serves single-instance deployments and
// tests; production multi-instance deployments swap in a shared cache.
type IdempotencyStore interface {
	// Seen reports whether key was recorded within its ttl.
	Seen(key string, now time.Time) bool

	// Record marks key as completed for ttl.
	Record(key string, ttl time.Duration, now time.Time)
}

// MemoryIdempotencyStore is a process-local IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]time.Time // key -> expiry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{seen: make(map[string]time.Time)}
}

func (s *MemoryIdempotencyStore) Seen(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.seen[key]
	return ok && now.Before(expiry)
}

func (s *MemoryIdempotencyStore) Record(key string, ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[key] = now.Add(ttl)
	s.maybeSweepLocked(now)
}

func (s *MemoryIdempotencyStore) maybeSweepLocked(now time.Time) {
	if len(s.seen) < 1024 {
		return
	}
	for key, expiry := range s.seen {
		if !now.Before(expiry) {
			delete(s.seen, key)
		}
	}
}
