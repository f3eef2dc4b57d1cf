package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/courseloop/runtimegw/pkg/idx"
	"github.com/courseloop/runtimegw/pkg/presign"
)

// ErrUnsupportedContentType means the requested upload content type is not
// on the configured allow-list.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// DefaultAssetURLTTL bounds how long a presigned upload grant is usable.
const DefaultAssetURLTTL = 15 * time.Minute

// AssetService issues time-boxed presigned upload descriptors against the
// object storage frontend. It validates the content type only; the storage
// service owns the uploaded bytes.
type AssetService struct {
	Signer *presign.Signer

	// AllowedTypes is the content-type allow-list.
	AllowedTypes []string

	// URLTTL defaults to DefaultAssetURLTTL when zero.
	URLTTL time.Duration
}

// SignUploadURL mints an upload descriptor under a fresh object key scoped
// to the calling course and alias.
func (s *AssetService) SignUploadURL(ctx context.Context, courseID, alias, contentType string) (presign.UploadDescriptor, error) {
	if !slices.Contains(s.AllowedTypes, contentType) {
		return presign.UploadDescriptor{}, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	ttl := s.URLTTL
	if ttl <= 0 {
		ttl = DefaultAssetURLTTL
	}

	key := fmt.Sprintf("%s/%s/%s", courseID, alias, idx.New().String())
	return s.Signer.SignUpload(key, contentType, ttl, time.Now())
}
