package jwtx_test

import (
	"testing"
	"time"

	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "runtime-gateway"

func newRSASigner(t *testing.T) (*jwtx.RS256Signer, *jwtx.KeySet) {
	t.Helper()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerRS256("test-key-1", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddRSA(signer.KID(), signer.Public()))
	return signer, keys
}

func TestLaunchTokenRoundTrip(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	now := time.Now().UTC()
	claims := jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student",
		[]string{"progress.write"}, "nonce-abc", "https://platform.test/v1/runtime/exchange",
		jwtx.DefaultLaunchTokenTTL, now,
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.VerifyLaunch(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "course-1", got.CourseID)
	require.Equal(t, "student", got.Role)
	require.Equal(t, []string{"progress.write"}, got.Scopes)
	require.Equal(t, "nonce-abc", got.Nonce)
	require.WithinDuration(t, now.Add(jwtx.DefaultLaunchTokenTTL), got.ExpiresAt.Time, time.Second)
}

func TestRuntimeTokenRoundTrip(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	claims := jwtx.NewRuntimeClaims(
		testIssuer, "u_abc123", "course-1", "provider-1",
		[]string{"progress.write", "files.write"}, "https://runtime.example.com",
		jwtx.DefaultRuntimeTokenTTL, time.Now().UTC(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.VerifyRuntime(token)
	require.NoError(t, err)
	require.Equal(t, "u_abc123", got.Alias)
	require.Equal(t, "u_abc123", got.Subject)
	require.Equal(t, "https://runtime.example.com", got.BoundAudience())
	require.True(t, got.HasScope("progress.write"))
	require.False(t, got.HasScope("attempts.write"))
}

func TestVerifyRejectsWrongTokenUse(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	launch, err := signer.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, time.Now().UTC(),
	))
	require.NoError(t, err)

	// A launch token must never pass as a runtime token.
	_, err = verifier.VerifyRuntime(launch)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	stale := time.Now().UTC().Add(-time.Hour)
	token, err := signer.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, stale,
	))
	require.NoError(t, err)

	_, err = verifier.VerifyLaunch(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, "someone-else", []string{jwtx.AlgorithmRS256})

	token, err := signer.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.VerifyLaunch(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestHS256FallbackRoundTrip(t *testing.T) {
	t.Parallel()

	key, err := cryptox.DeriveKey([]byte("dev-secret"), "launch-token", 32)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerHS256("hs256-launch", key)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddHMAC("hs256-launch", key))
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256, jwtx.AlgorithmHS256})

	token, err := signer.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, time.Now().UTC(),
	))
	require.NoError(t, err)

	got, err := verifier.VerifyLaunch(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
}

func TestRS256OnlyVerifierRejectsHS256(t *testing.T) {
	t.Parallel()

	key, err := cryptox.DeriveKey([]byte("dev-secret"), "launch-token", 32)
	require.NoError(t, err)

	hsSigner, err := jwtx.NewSignerHS256("hs256-launch", key)
	require.NoError(t, err)

	_, keys := newRSASigner(t)
	// Production posture: keyset may even hold the HMAC key, but the method
	// allow-list shuts the algorithm out entirely.
	require.NoError(t, keys.AddHMAC("hs256-launch", key))
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	token, err := hsSigner.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, time.Now().UTC(),
	))
	require.NoError(t, err)

	_, err = verifier.VerifyLaunch(token)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmRS256})

	token, err := signer.Sign(jwtx.NewLaunchClaims(
		testIssuer, "user-1", "course-1", "student", nil, "nonce-1", "",
		jwtx.DefaultLaunchTokenTTL, time.Now().UTC(),
	))
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = verifier.VerifyLaunch(tampered)
	require.Error(t, err)
}

func TestJWKSPublishesOnlyRSAKeys(t *testing.T) {
	t.Parallel()

	signer, keys := newRSASigner(t)
	require.NoError(t, keys.AddHMAC("hs256-runtime", []byte("super-secret")))

	jwks := keys.JWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, signer.KID(), jwks.Keys[0].Kid)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.NotEmpty(t, jwks.Keys[0].N)
	require.NotEmpty(t, jwks.Keys[0].E)
}
