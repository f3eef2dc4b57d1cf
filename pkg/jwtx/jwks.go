package jwtx

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"sort"
)

// JWK represents a public key in JSON Web Key format (RFC 7517). Only RSA
// keys are published; the symmetric fallback key must never appear here.
type JWK struct {
	Kty string `json:"kty"`           // key type: "RSA"
	Use string `json:"use,omitempty"` // what we use it for: "sig"
	Alg string `json:"alg,omitempty"` // algorithm: "RS256"
	Kid string `json:"kid,omitempty"` // key ID

	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid, use, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: use,
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// JWKS returns the publishable (asymmetric) subset of the KeySet, ordered
// by kid for stable output.
func (ks *KeySet) JWKS() JWKS {
	rsaKeys := ks.rsaKeys()

	kids := make([]string, 0, len(rsaKeys))
	for kid := range rsaKeys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	out := JWKS{Keys: make([]JWK, 0, len(kids))}
	for _, kid := range kids {
		out.Keys = append(out.Keys, NewRSAJWK(kid, "sig", AlgorithmRS256, rsaKeys[kid]))
	}
	return out
}
