package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/internal/runtime/store/drivers/sqlite"
	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/idx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://platform.test"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "runtimegw.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// testKeys bundles purpose-separated HS256 signers plus a verifier that
// knows both, mirroring the non-production symmetric fallback.
type testKeys struct {
	launchSigner  jwtx.Signer
	runtimeSigner jwtx.Signer
	verifier      *jwtx.Verifier
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()

	secret := []byte("test-symmetric-secret-0123456789")

	launchKey, err := cryptox.DeriveKey(secret, "launch-token", 32)
	require.NoError(t, err)
	runtimeKey, err := cryptox.DeriveKey(secret, "runtime-token", 32)
	require.NoError(t, err)

	launchSigner, err := jwtx.NewSignerHS256("launch-hs", launchKey)
	require.NoError(t, err)
	runtimeSigner, err := jwtx.NewSignerHS256("runtime-hs", runtimeKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddHMAC("launch-hs", launchKey))
	require.NoError(t, keys.AddHMAC("runtime-hs", runtimeKey))

	return testKeys{
		launchSigner:  launchSigner,
		runtimeSigner: runtimeSigner,
		verifier:      jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmHS256}),
	}
}

// seedLaunchFixture creates a course owned by teacherID with studentID
// enrolled. When withProvider is true the course gets a registered provider
// with the given domain (possibly empty, exercising the launch-url
// fallback).
func seedLaunchFixture(t *testing.T, st store.Store, withProvider bool, providerDomain, launchURL, teacherID, studentID string) (domain.Course, domain.Enrollment) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	providerID := ""
	if withProvider {
		providerID = idx.New().String()
		require.NoError(t, st.Providers().CreateProvider(ctx, domain.Provider{
			ID:        providerID,
			Name:      "Acme Runtimes",
			Domain:    providerDomain,
			CreatedAt: now,
		}))
	}

	course := domain.Course{
		ID:         idx.New().String(),
		Title:      "Intro to Marsupials",
		TeacherID:  teacherID,
		ProviderID: providerID,
		LaunchURL:  launchURL,
		CreatedAt:  now,
	}
	require.NoError(t, st.Courses().CreateCourse(ctx, course))

	enrollment := domain.Enrollment{
		ID:        idx.New().String(),
		CourseID:  course.ID,
		UserID:    studentID,
		CreatedAt: now,
	}
	require.NoError(t, st.Enrollments().CreateEnrollment(ctx, enrollment))

	return course, enrollment
}
