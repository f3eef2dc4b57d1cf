package service

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/courseloop/runtimegw/pkg/httpx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
)

// ScopeRequirement describes the scopes a capability endpoint demands.
// Every scope in All must be present; when Any is non-empty at least one of
// its scopes must be present as well.
type ScopeRequirement struct {
	All []string
	Any []string
}

// GuardError is a verification failure with its HTTP mapping already
// decided, so every endpoint rejects identically.
type GuardError struct {
	Status  int
	Code    string
	Message string
}

func (e *GuardError) Error() string { return e.Message }

// Guard is the stateless bearer check layered over every runtime-facing
// endpoint: signature, audience binding, scope subset. It holds no state of
// its own beyond configuration.
type Guard struct {
	Verifier *jwtx.Verifier

	// AllowedOrigins is the browser-origin allow-list. Audience binding is
	// enforced only for requests whose Origin header is on this list;
	// server-to-server calls carry no Origin and skip the check.
	AllowedOrigins []string
}

// Authorize validates the Authorization header value against the scope
// requirement. origin is the inbound Origin header, empty for non-browser
// callers.
func (g *Guard) Authorize(authorization, origin string, req ScopeRequirement) (jwtx.RuntimeClaims, *GuardError) {
	token, ok := httpx.BearerToken(authorization)
	if !ok {
		return jwtx.RuntimeClaims{}, &GuardError{
			Status:  http.StatusUnauthorized,
			Code:    httpx.CodeUnauthenticated,
			Message: "Missing runtime token",
		}
	}

	claims, err := g.Verifier.VerifyRuntime(token)
	if err != nil {
		return jwtx.RuntimeClaims{}, &GuardError{
			Status:  http.StatusForbidden,
			Code:    httpx.CodeForbidden,
			Message: "Invalid runtime token",
		}
	}

	if origin != "" && slices.Contains(g.AllowedOrigins, origin) {
		if claims.BoundAudience() != origin {
			return jwtx.RuntimeClaims{}, &GuardError{
				Status:  http.StatusForbidden,
				Code:    httpx.CodeForbidden,
				Message: "Audience mismatch",
			}
		}
	}

	for _, scope := range req.All {
		if !claims.HasScope(scope) {
			return jwtx.RuntimeClaims{}, missingScope(scope)
		}
	}
	if len(req.Any) > 0 {
		satisfied := false
		for _, scope := range req.Any {
			if claims.HasScope(scope) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return jwtx.RuntimeClaims{}, missingScope(strings.Join(req.Any, " or "))
		}
	}

	return claims, nil
}

func missingScope(name string) *GuardError {
	return &GuardError{
		Status:  http.StatusForbidden,
		Code:    httpx.CodeForbidden,
		Message: fmt.Sprintf("Missing scope %s", name),
	}
}
