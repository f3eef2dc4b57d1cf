package domain

import "time"

// LaunchNonce records one launch-token issuance for single-use enforcement.
// The nonce itself is never stored, only its fingerprint.
type LaunchNonce struct {
	NonceHash string
	CourseID  string
	UserID    string
	ExpiresAt time.Time
	// UsedAt is set exactly once, during exchange. A non-nil value means
	// any further exchange of the same launch token is a replay.
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Capability scopes a runtime token may carry.
const (
	ScopeProgressRead  = "progress.read"
	ScopeProgressWrite = "progress.write"
	ScopeAttemptsRead  = "attempts.read"
	ScopeAttemptsWrite = "attempts.write"
	ScopeFilesWrite    = "files.write"
)

// DefaultScopesForRole returns the scope grant for a launch role. A launch
// request may narrow this set but never widen it.
func DefaultScopesForRole(role string) []string {
	switch role {
	case RoleTeacher:
		return []string{ScopeProgressRead, ScopeAttemptsRead}
	default:
		return []string{ScopeProgressRead, ScopeProgressWrite, ScopeAttemptsWrite, ScopeFilesWrite}
	}
}
