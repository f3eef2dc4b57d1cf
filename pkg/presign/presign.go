// Package presign issues time-boxed signed upload URLs for an object
// storage service fronted by this gateway. The signature covers method,
// object key, content type and expiry, so the storage frontend can verify
// the grant without shared state.
package presign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrExpired      = errors.New("presign: url expired")
	ErrBadSignature = errors.New("presign: signature mismatch")
	ErrMalformed    = errors.New("presign: malformed url")
)

// UploadDescriptor is what a client needs to perform the upload.
type UploadDescriptor struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Key     string            `json:"key"`
}

// Signer mints and verifies presigned upload URLs.
type Signer struct {
	// BaseURL of the storage frontend, e.g. "https://storage.example.com".
	BaseURL string
	// Secret shared with the storage frontend.
	Secret []byte
}

// SignUpload returns a PUT descriptor for the given object key, valid until
// now+ttl. The client must send exactly the returned headers.
func (s *Signer) SignUpload(key, contentType string, ttl time.Duration, now time.Time) (UploadDescriptor, error) {
	if key == "" || strings.Contains(key, "..") {
		return UploadDescriptor{}, fmt.Errorf("presign: invalid object key %q", key)
	}
	if len(s.Secret) == 0 {
		return UploadDescriptor{}, errors.New("presign: no signing secret configured")
	}

	exp := now.Add(ttl).Unix()
	sig := s.sign("PUT", key, contentType, exp)

	u := fmt.Sprintf("%s/upload/%s?ct=%s&exp=%d&sig=%s",
		strings.TrimRight(s.BaseURL, "/"),
		url.PathEscape(key),
		url.QueryEscape(contentType),
		exp,
		sig,
	)

	return UploadDescriptor{
		URL:     u,
		Method:  "PUT",
		Headers: map[string]string{"Content-Type": contentType},
		Key:     key,
	}, nil
}

// VerifyUpload checks a presigned upload URL. Used by the storage frontend
// (and tests) to validate a grant before accepting bytes.
func (s *Signer) VerifyUpload(rawURL string, now time.Time) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrMalformed
	}

	key := strings.TrimPrefix(u.Path, "/upload/")
	if key == "" || key == u.Path {
		return ErrMalformed
	}
	key, err = url.PathUnescape(key)
	if err != nil {
		return ErrMalformed
	}

	q := u.Query()
	exp, err := strconv.ParseInt(q.Get("exp"), 10, 64)
	if err != nil {
		return ErrMalformed
	}
	if now.Unix() > exp {
		return ErrExpired
	}

	want := s.sign("PUT", key, q.Get("ct"), exp)
	if !hmac.Equal([]byte(want), []byte(q.Get("sig"))) {
		return ErrBadSignature
	}
	return nil
}

func (s *Signer) sign(method, key, contentType string, exp int64) string {
	mac := hmac.New(sha256.New, s.Secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", method, key, contentType, exp)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
