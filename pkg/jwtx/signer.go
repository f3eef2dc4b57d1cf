package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported signing algorithms. RS256 is preferred; HS256 exists only as a
// non-production fallback when no asymmetric key is provisioned.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmHS256 = "HS256"
)

// Signer is our interface for anything that can sign a token.
type Signer interface {
	Alg() string
	KID() string
	Sign(claims jwt.Claims) (string, error)
}

// RS256Signer signs tokens using RSA SHA-256.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
	pub *rsa.PublicKey
}

// NewSignerRS256 loads an RSA private key from PEM bytes. Handles both
// PKCS1 and PKCS8 because otherwise we will be chasing a bug for longer
// than we would be willing to admit.
func NewSignerRS256(kid string, pemKey []byte) (*RS256Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey
	var err error

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		priv, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err2)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("jwtx: parse RSA key: %w", err)
	}

	return &RS256Signer{kid: kid, key: key, pub: &key.PublicKey}, nil
}

func (s *RS256Signer) Alg() string { return AlgorithmRS256 }
func (s *RS256Signer) KID() string { return s.kid }

// Public returns the verification half of the keypair.
func (s *RS256Signer) Public() *rsa.PublicKey { return s.pub }

func (s *RS256Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// HS256Signer signs tokens with an HMAC-SHA256 key. The key should be
// derived per purpose (cryptox.DeriveKey) rather than used raw.
type HS256Signer struct {
	kid string
	key []byte
}

// NewSignerHS256 wraps a symmetric key as a Signer.
func NewSignerHS256(kid string, key []byte) (*HS256Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("jwtx: empty HMAC key")
	}
	return &HS256Signer{kid: kid, key: key}, nil
}

func (s *HS256Signer) Alg() string { return AlgorithmHS256 }
func (s *HS256Signer) KID() string { return s.kid }

func (s *HS256Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
