package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinRSABits is the smallest RSA key size we will generate or accept.
const MinRSABits = 2048

// GenerateRSAKey generates a new RSA private key and returns it PEM-encoded
// in PKCS8 form. Used for ephemeral dev/test keys; production deployments
// load a provisioned key instead.
func GenerateRSAKey(bits int) ([]byte, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size %d below minimum %d", bits, MinRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate RSA key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal RSA key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// DeriveKey derives a purpose-bound key from a shared secret using
// HKDF-SHA256. Distinct purposes yield independent keys, so a token signed
// under one purpose can never verify under another even though both stem
// from the same configured secret.
func DeriveKey(secret []byte, purpose string, size int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("cryptox: empty secret")
	}
	if size <= 0 {
		return nil, fmt.Errorf("cryptox: key size must be positive, got %d", size)
	}

	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}
	return key, nil
}
