package jwtx

import (
	"crypto/rsa"
	"errors"
	"sync"
)

// KeySet is a thread-safe kid -> verification key lookup. Values are either
// *rsa.PublicKey (RS256) or []byte (HS256).
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]any
}

var ErrKeyNotFound = errors.New("jwtx: key not found")

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]any)}
}

// AddRSA registers an RSA public key under the given kid.
func (ks *KeySet) AddRSA(kid string, pub *rsa.PublicKey) error {
	if kid == "" || pub == nil {
		return errors.New("jwtx: kid and key are required")
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[kid] = pub
	return nil
}

// AddHMAC registers a symmetric key under the given kid.
func (ks *KeySet) AddHMAC(kid string, key []byte) error {
	if kid == "" || len(key) == 0 {
		return errors.New("jwtx: kid and key are required")
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[kid] = key
	return nil
}

// Get returns the verification key for a kid.
func (ks *KeySet) Get(kid string) (any, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	key, ok := ks.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// IsReady reports whether at least one verification key is loaded.
func (ks *KeySet) IsReady() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys) > 0
}

// rsaKeys returns the kid -> RSA public key subset, for JWKS publishing.
// Symmetric keys are never published.
func (ks *KeySet) rsaKeys() map[string]*rsa.PublicKey {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := make(map[string]*rsa.PublicKey)
	for kid, key := range ks.keys {
		if pub, ok := key.(*rsa.PublicKey); ok {
			out[kid] = pub
		}
	}
	return out
}
