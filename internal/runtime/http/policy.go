package http

import (
	"net/http"
	"time"

	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

// writePolicy bundles the per-principal rate limit and the idempotency
// replay suppression a capability write applies after the guard.
//
// Ordering matters twice over: the rate limit runs before the replay check
// so a 429 never involves the idempotency key, and the key is recorded only
// by commit — after the write succeeded — so a failed write (validation or
// storage) never turns the client's corrected retry into a phantom replayed
// success.
type writePolicy struct {
	op       string
	limit    httpx.WindowLimit
	counters httpx.CounterStore
	idem     httpx.IdempotencyStore
}

// apply enforces the rate limit and short-circuits replays of completed
// writes, writing the 429 or replay response itself. handled is true when
// the caller must not execute the write.
func (p writePolicy) apply(w http.ResponseWriter, r *http.Request, courseID, alias string) (handled bool) {
	now := time.Now()

	res := p.counters.Increment(p.op+":"+courseID+":"+alias, p.limit, now)
	if !res.Allowed {
		httpx.TooManyRequests(w, r, res, now)
		return true
	}

	if key := r.Header.Get(httpx.IdempotencyKeyHeader); key != "" && p.idem != nil {
		if p.idem.Seen(p.idemKey(courseID, alias, key), now) {
			w.Header().Set(httpx.IdempotencyReplayedHeader, "1")
			writeOK(w, r, http.StatusOK)
			return true
		}
	}

	return false
}

// commit records the request's idempotency key. Call it once the write has
// succeeded, never on a failure path.
func (p writePolicy) commit(r *http.Request, courseID, alias string) {
	key := r.Header.Get(httpx.IdempotencyKeyHeader)
	if key == "" || p.idem == nil {
		return
	}
	p.idem.Record(p.idemKey(courseID, alias, key), httpx.DefaultIdempotencyTTL, time.Now())
}

func (p writePolicy) idemKey(courseID, alias, key string) string {
	return p.op + ":" + courseID + ":" + alias + ":" + key
}

// okResponse is the success body of the capability writes.
type okResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId"`
}

func writeOK(w http.ResponseWriter, r *http.Request, status int) {
	httpx.WriteJSON(w, status, okResponse{
		OK:        true,
		RequestID: slogx.RequestID(r.Context()),
	})
}
