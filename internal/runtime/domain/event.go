package domain

import "time"

// Runtime event kinds and the scope each requires.
const (
	EventProgress         = "course.progress"
	EventAttemptCompleted = "course.attempt.completed"
)

// RuntimeEvent is a telemetry record of a runtime-side write (progress,
// grade, generic event). Writes are best-effort: losing one must never fail
// the capability call that produced it.
type RuntimeEvent struct {
	ID        string
	CourseID  string
	Alias     string
	Kind      string
	Payload   []byte // JSON
	CreatedAt time.Time
}

// ScopeForEvent maps an event kind to the scope required to emit it.
// Unknown kinds return "".
func ScopeForEvent(kind string) string {
	switch kind {
	case EventProgress:
		return ScopeProgressWrite
	case EventAttemptCompleted:
		return ScopeAttemptsWrite
	default:
		return ""
	}
}
