package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/pkg/presign"
	"github.com/stretchr/testify/require"
)

func TestAssetService_SignUploadURL(t *testing.T) {
	ctx := context.Background()

	signer := &presign.Signer{
		BaseURL: "https://storage.test",
		Secret:  []byte("storage-shared-secret"),
	}
	svc := &AssetService{
		Signer:       signer,
		AllowedTypes: []string{"image/png", "application/pdf"},
		URLTTL:       5 * time.Minute,
	}

	t.Run("allowed content type yields a verifiable grant", func(t *testing.T) {
		desc, err := svc.SignUploadURL(ctx, "course-1", "u_abc", "image/png")
		require.NoError(t, err)
		require.Equal(t, "PUT", desc.Method)
		require.Equal(t, "image/png", desc.Headers["Content-Type"])
		require.True(t, strings.HasPrefix(desc.Key, "course-1/u_abc/"))
		require.NoError(t, signer.VerifyUpload(desc.URL, time.Now()))
	})

	t.Run("grant expires", func(t *testing.T) {
		desc, err := svc.SignUploadURL(ctx, "course-1", "u_abc", "image/png")
		require.NoError(t, err)
		require.ErrorIs(t, signer.VerifyUpload(desc.URL, time.Now().Add(6*time.Minute)), presign.ErrExpired)
	})

	t.Run("disallowed content type", func(t *testing.T) {
		_, err := svc.SignUploadURL(ctx, "course-1", "u_abc", "application/x-msdownload")
		require.ErrorIs(t, err, ErrUnsupportedContentType)
	})

	t.Run("keys are unique per grant", func(t *testing.T) {
		a, err := svc.SignUploadURL(ctx, "course-1", "u_abc", "image/png")
		require.NoError(t, err)
		b, err := svc.SignUploadURL(ctx, "course-1", "u_abc", "image/png")
		require.NoError(t, err)
		require.NotEqual(t, a.Key, b.Key)
	})
}
