package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Launch tokens are single-use handoff
// credentials; runtime tokens live exactly as long. Both are deliberately
// short because neither has a revocation path.
const (
	// DefaultLaunchTokenTTL is the lifetime of a one-time launch token.
	DefaultLaunchTokenTTL = 10 * time.Minute

	// DefaultRuntimeTokenTTL is the lifetime of a scoped runtime token.
	DefaultRuntimeTokenTTL = 10 * time.Minute
)

// Token use discriminators. Every token carries one so a credential minted
// for one purpose can never be replayed as another, even under the same
// signing key.
const (
	TokenUseLaunch  = "launch"
	TokenUseRuntime = "runtime"
	TokenUseSession = "session"
)

// LaunchClaims is the claim set of a one-time launch token handed to an
// external course runtime. Subject is the real platform user id; the token
// is opaque to the runtime until exchanged.
type LaunchClaims struct {
	jwt.RegisteredClaims

	// TokenUse is always "launch".
	TokenUse string `json:"token_use"`

	// CourseID the launch was initiated from.
	CourseID string `json:"course_id"`

	// Role of the initiating user in the course ("student" or "teacher").
	Role string `json:"role"`

	// Scopes the runtime token minted at exchange may carry at most.
	Scopes []string `json:"scopes"`

	// Nonce is unique per issuance and consumed exactly once at exchange.
	Nonce string `json:"nonce"`

	// CallbackURL is the exchange endpoint the runtime should POST to.
	CallbackURL string `json:"callback_url,omitempty"`
}

// RuntimeClaims is the claim set of the credential an external runtime uses
// for capability calls. Subject and Alias are the pseudonymous per
// (user, provider) alias, never the real user id. Audience, when non-empty,
// is the provider origin the token is bound to.
type RuntimeClaims struct {
	jwt.RegisteredClaims

	// TokenUse is always "runtime".
	TokenUse string `json:"token_use"`

	Alias      string   `json:"alias"`
	CourseID   string   `json:"course_id"`
	ProviderID string   `json:"provider_id,omitempty"`
	Scopes     []string `json:"scopes"`
}

// SessionClaims is a platform session credential presented by first-party
// callers of the launch-token endpoint. Subject is the platform user id.
type SessionClaims struct {
	jwt.RegisteredClaims

	// TokenUse is always "session".
	TokenUse string `json:"token_use"`

	Role string `json:"role,omitempty"`
}

// NewLaunchClaims builds minimally-correct launch claims. Expiry is always
// iat + ttl, never supplied by the caller.
func NewLaunchClaims(issuer, userID, courseID, role string, scopes []string, nonce, callbackURL string, ttl time.Duration, now time.Time) LaunchClaims {
	return LaunchClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse:    TokenUseLaunch,
		CourseID:    courseID,
		Role:        role,
		Scopes:      scopes,
		Nonce:       nonce,
		CallbackURL: callbackURL,
	}
}

// NewRuntimeClaims builds minimally-correct runtime claims. An empty
// audience means no origin could be resolved for the course's provider and
// audience binding will not be enforceable for this token.
func NewRuntimeClaims(issuer, alias, courseID, providerID string, scopes []string, audience string, ttl time.Duration, now time.Time) RuntimeClaims {
	rc := RuntimeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   alias,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse:   TokenUseRuntime,
		Alias:      alias,
		CourseID:   courseID,
		ProviderID: providerID,
		Scopes:     scopes,
	}
	if audience != "" {
		rc.Audience = jwt.ClaimStrings{audience}
	}
	return rc
}

// NewSessionClaims builds platform session claims, mainly for tests and
// first-party token minting.
func NewSessionClaims(issuer, userID, role string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse: TokenUseSession,
		Role:     role,
	}
}

// HasScope reports whether the runtime token carries the given scope.
func (c *RuntimeClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// BoundAudience returns the single origin the token is bound to, or ""
// when the token carries no audience.
func (c *RuntimeClaims) BoundAudience() string {
	if len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}
