package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/jwtx"
)

// ErrNoProductionKey is the hard failure for a production deployment with no
// asymmetric signing key. Silently downgrading to the symmetric fallback in
// production is never acceptable.
var ErrNoProductionKey = errors.New("production requires an RS256 signing key")

// HKDF purposes for the symmetric fallback. Separate purposes mean a token
// signed for one use can never verify as another even under one secret.
const (
	purposeLaunch  = "launch-token"
	purposeRuntime = "runtime-token"
	purposeSession = "platform-session"
)

// RuntimeKeys is the fully wired signing and verification material.
type RuntimeKeys struct {
	KeySet *jwtx.KeySet

	LaunchSigner  jwtx.Signer
	RuntimeSigner jwtx.Signer

	// Verifier validates launch and runtime tokens.
	Verifier *jwtx.Verifier

	// SessionVerifier validates first-party platform session tokens; these
	// are always HMAC-signed with the shared platform secret.
	SessionVerifier *jwtx.Verifier
}

// InitRuntimeKeys builds the key material per the signing policy: RS256 when
// a private key is provisioned, HS256 derived from the symmetric secret
// otherwise, and a hard failure instead of the fallback in production.
func InitRuntimeKeys(cfg Config, logger *slog.Logger) (*RuntimeKeys, error) {
	keys := jwtx.NewKeySet()
	rk := &RuntimeKeys{KeySet: keys}

	switch {
	case len(cfg.PrivateKeyPEM) > 0:
		signer, err := jwtx.NewSignerRS256("runtime-rs256", cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("load RS256 key: %w", err)
		}
		if err := keys.AddRSA(signer.KID(), signer.Public()); err != nil {
			return nil, err
		}

		// One RSA key signs both token kinds; token_use keeps them apart.
		rk.LaunchSigner = signer
		rk.RuntimeSigner = signer
		rk.Verifier = jwtx.NewVerifier(keys, cfg.Issuer, []string{jwtx.AlgorithmRS256})
		logger.Info("signing with RS256", "kid", signer.KID())

	case cfg.IsProduction():
		return nil, ErrNoProductionKey

	default:
		secret := cfg.SymmetricSecret
		if secret == "" {
			secret = cryptox.MustGenerateToken(cryptox.TokenSize256)
			logger.Warn("no signing material configured, using an ephemeral symmetric secret; tokens will not survive a restart")
		}

		launchKey, err := cryptox.DeriveKey([]byte(secret), purposeLaunch, 32)
		if err != nil {
			return nil, err
		}
		runtimeKey, err := cryptox.DeriveKey([]byte(secret), purposeRuntime, 32)
		if err != nil {
			return nil, err
		}

		launchSigner, err := jwtx.NewSignerHS256("launch-hs256", launchKey)
		if err != nil {
			return nil, err
		}
		runtimeSigner, err := jwtx.NewSignerHS256("runtime-hs256", runtimeKey)
		if err != nil {
			return nil, err
		}
		if err := keys.AddHMAC(launchSigner.KID(), launchKey); err != nil {
			return nil, err
		}
		if err := keys.AddHMAC(runtimeSigner.KID(), runtimeKey); err != nil {
			return nil, err
		}

		rk.LaunchSigner = launchSigner
		rk.RuntimeSigner = runtimeSigner
		rk.Verifier = jwtx.NewVerifier(keys, cfg.Issuer, []string{jwtx.AlgorithmHS256})
		logger.Warn("signing with the HS256 fallback; provision RUNTIME_PRIVATE_KEY before production")
	}

	sessionVerifier, err := initSessionVerifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	rk.SessionVerifier = sessionVerifier

	return rk, nil
}

func initSessionVerifier(cfg Config, logger *slog.Logger) (*jwtx.Verifier, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("PLATFORM_SESSION_SECRET is required in production")
		}
		secret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		logger.Warn("no platform session secret configured, using an ephemeral one; launch-token calls will not authenticate")
	}

	sessionKey, err := cryptox.DeriveKey([]byte(secret), purposeSession, 32)
	if err != nil {
		return nil, err
	}

	sessionKeys := jwtx.NewKeySet()
	if err := sessionKeys.AddHMAC("session-hs256", sessionKey); err != nil {
		return nil, err
	}
	return jwtx.NewVerifier(sessionKeys, cfg.Issuer, []string{jwtx.AlgorithmHS256}), nil
}
