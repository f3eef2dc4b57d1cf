package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrTokenUse     = errors.New("jwtx: wrong token use")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Verifier validates signed tokens against a KeySet and hands back the typed
// claim set for the expected token use. Signature algorithms are restricted
// to the configured method list, so a deployment without the symmetric
// fallback enabled will reject HS256 tokens outright.
type Verifier struct {
	keys    *KeySet
	methods []string
	issuer  string
	leeway  time.Duration
}

// NewVerifier builds a Verifier. methods is the algorithm allow-list
// (e.g. only RS256 in production). A small default leeway covers clock skew.
func NewVerifier(keys *KeySet, issuer string, methods []string) *Verifier {
	return &Verifier{
		keys:    keys,
		methods: methods,
		issuer:  issuer,
		leeway:  30 * time.Second,
	}
}

// VerifyLaunch validates a launch token and returns its typed claims.
func (v *Verifier) VerifyLaunch(token string) (LaunchClaims, error) {
	var claims LaunchClaims
	if err := v.verify(token, &claims); err != nil {
		return LaunchClaims{}, err
	}
	if claims.TokenUse != TokenUseLaunch {
		return LaunchClaims{}, ErrTokenUse
	}
	if claims.Nonce == "" || claims.CourseID == "" || claims.Subject == "" {
		return LaunchClaims{}, ErrInvalidClaim
	}
	return claims, nil
}

// VerifyRuntime validates a runtime token and returns its typed claims.
func (v *Verifier) VerifyRuntime(token string) (RuntimeClaims, error) {
	var claims RuntimeClaims
	if err := v.verify(token, &claims); err != nil {
		return RuntimeClaims{}, err
	}
	if claims.TokenUse != TokenUseRuntime {
		return RuntimeClaims{}, ErrTokenUse
	}
	if claims.Alias == "" || claims.CourseID == "" {
		return RuntimeClaims{}, ErrInvalidClaim
	}
	return claims, nil
}

// VerifySession validates a platform session token.
func (v *Verifier) VerifySession(token string) (SessionClaims, error) {
	var claims SessionClaims
	if err := v.verify(token, &claims); err != nil {
		return SessionClaims{}, err
	}
	if claims.TokenUse != TokenUseSession {
		return SessionClaims{}, ErrTokenUse
	}
	if claims.Subject == "" {
		return SessionClaims{}, ErrInvalidClaim
	}
	return claims, nil
}

func (v *Verifier) verify(tokenStr string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods(v.methods),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}

		key, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}

		// The key material must match the declared algorithm.
		switch t.Method.Alg() {
		case AlgorithmRS256:
			pub, ok := key.(*rsa.PublicKey)
			if !ok {
				return nil, errors.New("jwtx: kid does not hold an RSA key")
			}
			return pub, nil
		case AlgorithmHS256:
			hk, ok := key.([]byte)
			if !ok {
				return nil, errors.New("jwtx: kid does not hold an HMAC key")
			}
			return hk, nil
		default:
			return nil, fmt.Errorf("jwtx: unsupported algorithm %q", t.Method.Alg())
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrInvalidSig
		default:
			return fmt.Errorf("jwtx: parse or verify: %w", err)
		}
	}
	if !token.Valid {
		return ErrInvalidClaim
	}

	if v.issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != v.issuer {
			return ErrIssuer
		}
	}

	return nil
}
