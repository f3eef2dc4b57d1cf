package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestGuard_Authorize(t *testing.T) {
	keys := newTestKeys(t)

	guard := &Guard{
		Verifier:       keys.verifier,
		AllowedOrigins: []string{"https://runtime.acme.test"},
	}

	mint := func(t *testing.T, scopes []string, audience string, ttl time.Duration) string {
		t.Helper()
		claims := jwtx.NewRuntimeClaims(testIssuer, "u_abc", "course-1", "provider-1", scopes, audience, ttl, time.Now())
		token, err := keys.runtimeSigner.Sign(claims)
		require.NoError(t, err)
		return token
	}

	writeScopes := []string{domain.ScopeProgressWrite}

	t.Run("missing token", func(t *testing.T) {
		_, gerr := guard.Authorize("", "", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusUnauthorized, gerr.Status)
		require.Equal(t, "Missing runtime token", gerr.Message)
	})

	t.Run("non-bearer authorization", func(t *testing.T) {
		_, gerr := guard.Authorize("Basic dXNlcjpwYXNz", "", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusUnauthorized, gerr.Status)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, gerr := guard.Authorize("Bearer nope", "", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusForbidden, gerr.Status)
		require.Equal(t, "Invalid runtime token", gerr.Message)
	})

	t.Run("expired token", func(t *testing.T) {
		token := mint(t, writeScopes, "https://runtime.acme.test", -time.Hour)
		_, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusForbidden, gerr.Status)
	})

	t.Run("launch token is not a runtime token", func(t *testing.T) {
		claims := jwtx.NewLaunchClaims(testIssuer, "user-1", "course-1", domain.RoleStudent,
			writeScopes, "nonce", "", time.Minute, time.Now())
		token, err := keys.launchSigner.Sign(claims)
		require.NoError(t, err)

		_, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusForbidden, gerr.Status)
	})

	t.Run("audience enforced for allow-listed origins", func(t *testing.T) {
		token := mint(t, writeScopes, "https://other.test", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "https://runtime.acme.test", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusForbidden, gerr.Status)
		require.Equal(t, "Audience mismatch", gerr.Message)
	})

	t.Run("unbound audience fails allow-listed browser calls", func(t *testing.T) {
		token := mint(t, writeScopes, "", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "https://runtime.acme.test", ScopeRequirement{})
		require.NotNil(t, gerr)
		require.Equal(t, "Audience mismatch", gerr.Message)
	})

	t.Run("audience skipped without an origin header", func(t *testing.T) {
		token := mint(t, writeScopes, "https://other.test", time.Minute)
		claims, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{All: writeScopes})
		require.Nil(t, gerr)
		require.Equal(t, "u_abc", claims.Alias)
	})

	t.Run("audience skipped for non-allow-listed origins", func(t *testing.T) {
		token := mint(t, writeScopes, "https://other.test", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "https://unknown.test", ScopeRequirement{})
		require.Nil(t, gerr)
	})

	t.Run("matching audience proceeds to scope check", func(t *testing.T) {
		token := mint(t, writeScopes, "https://runtime.acme.test", time.Minute)
		claims, gerr := guard.Authorize("Bearer "+token, "https://runtime.acme.test", ScopeRequirement{All: writeScopes})
		require.Nil(t, gerr)
		require.Equal(t, writeScopes, claims.Scopes)
	})

	t.Run("missing required scope", func(t *testing.T) {
		token := mint(t, []string{domain.ScopeProgressRead}, "", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{All: []string{domain.ScopeAttemptsWrite}})
		require.NotNil(t, gerr)
		require.Equal(t, http.StatusForbidden, gerr.Status)
		require.Equal(t, "Missing scope attempts.write", gerr.Message)
	})

	t.Run("any-of satisfied by one alternative", func(t *testing.T) {
		token := mint(t, []string{domain.ScopeAttemptsRead}, "", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{
			Any: []string{domain.ScopeProgressRead, domain.ScopeAttemptsRead},
		})
		require.Nil(t, gerr)
	})

	t.Run("any-of with no alternative present", func(t *testing.T) {
		token := mint(t, []string{domain.ScopeFilesWrite}, "", time.Minute)
		_, gerr := guard.Authorize("Bearer "+token, "", ScopeRequirement{
			Any: []string{domain.ScopeProgressRead, domain.ScopeAttemptsRead},
		})
		require.NotNil(t, gerr)
		require.Equal(t, "Missing scope progress.read or attempts.read", gerr.Message)
	})
}
