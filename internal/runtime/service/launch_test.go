package service

import (
	"context"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLaunchService_IssueLaunchToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	keys := newTestKeys(t)

	course, enrollment := seedLaunchFixture(t, st, true, "runtime.acme.test", "", "teacher-1", "student-1")

	svc := &LaunchService{
		Store:       st,
		Signer:      keys.launchSigner,
		Issuer:      testIssuer,
		CallbackURL: "https://platform.test/v1/runtime/exchange",
	}

	t.Run("student gets default student scopes", func(t *testing.T) {
		resp, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: enrollment.ID,
			CallerID:     "student-1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, resp.Token)
		require.WithinDuration(t, time.Now().Add(jwtx.DefaultLaunchTokenTTL), resp.ExpiresAt, 5*time.Second)

		claims, err := keys.verifier.VerifyLaunch(resp.Token)
		require.NoError(t, err)
		require.Equal(t, "student-1", claims.Subject)
		require.Equal(t, course.ID, claims.CourseID)
		require.Equal(t, domain.RoleStudent, claims.Role)
		require.ElementsMatch(t, domain.DefaultScopesForRole(domain.RoleStudent), claims.Scopes)
		require.NotEmpty(t, claims.Nonce)
		require.Equal(t, svc.CallbackURL, claims.CallbackURL)
	})

	t.Run("owning teacher gets teacher scopes", func(t *testing.T) {
		resp, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: enrollment.ID,
			CallerID:     "teacher-1",
		})
		require.NoError(t, err)

		claims, err := keys.verifier.VerifyLaunch(resp.Token)
		require.NoError(t, err)
		require.Equal(t, domain.RoleTeacher, claims.Role)
		require.ElementsMatch(t, domain.DefaultScopesForRole(domain.RoleTeacher), claims.Scopes)
	})

	t.Run("request narrows the grant but never widens it", func(t *testing.T) {
		resp, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: enrollment.ID,
			CallerID:     "student-1",
			Scopes:       []string{domain.ScopeProgressWrite, "admin.everything"},
		})
		require.NoError(t, err)

		claims, err := keys.verifier.VerifyLaunch(resp.Token)
		require.NoError(t, err)
		require.Equal(t, []string{domain.ScopeProgressWrite}, claims.Scopes)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: "nope",
			CallerID:     "student-1",
		})
		require.ErrorIs(t, err, ErrEnrollmentNotFound)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		_, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: enrollment.ID,
			CallerID:     "someone-else",
		})
		require.ErrorIs(t, err, ErrNotEntitled)
	})

	t.Run("nonce record is persisted with a fingerprint", func(t *testing.T) {
		resp, err := svc.IssueLaunchToken(ctx, LaunchRequest{
			EnrollmentID: enrollment.ID,
			CallerID:     "student-1",
		})
		require.NoError(t, err)

		claims, err := keys.verifier.VerifyLaunch(resp.Token)
		require.NoError(t, err)

		record, err := st.LaunchNonces().GetLaunchNonce(ctx, cryptox.FingerprintToken(claims.Nonce))
		require.NoError(t, err)
		require.Equal(t, course.ID, record.CourseID)
		require.Equal(t, "student-1", record.UserID)
		require.Nil(t, record.UsedAt)

		// The raw nonce never appears at rest.
		_, err = st.LaunchNonces().GetLaunchNonce(ctx, claims.Nonce)
		require.Error(t, err)
	})
}
