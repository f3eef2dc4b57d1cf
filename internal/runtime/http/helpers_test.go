package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/internal/runtime/store/drivers/sqlite"
	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/idx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/courseloop/runtimegw/pkg/presign"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://platform.test"
	testOrigin = "https://runtime.acme.test"
)

// testEnv is a fully wired router over a real sqlite store, with the
// symmetric fallback key material so tests can mint their own tokens.
type testEnv struct {
	router *Router
	store  store.Store

	verifier      *jwtx.Verifier
	runtimeSigner jwtx.Signer
	sessionSigner jwtx.Signer
}

func newTestEnv(t *testing.T, featureEnabled bool) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "runtimegw.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	secret := []byte("integration-test-secret-0123456789")
	launchKey, err := cryptox.DeriveKey(secret, "launch-token", 32)
	require.NoError(t, err)
	runtimeKey, err := cryptox.DeriveKey(secret, "runtime-token", 32)
	require.NoError(t, err)
	sessionKey, err := cryptox.DeriveKey(secret, "platform-session", 32)
	require.NoError(t, err)

	launchSigner, err := jwtx.NewSignerHS256("launch-hs256", launchKey)
	require.NoError(t, err)
	runtimeSigner, err := jwtx.NewSignerHS256("runtime-hs256", runtimeKey)
	require.NoError(t, err)
	sessionSigner, err := jwtx.NewSignerHS256("session-hs256", sessionKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddHMAC("launch-hs256", launchKey))
	require.NoError(t, keys.AddHMAC("runtime-hs256", runtimeKey))
	verifier := jwtx.NewVerifier(keys, testIssuer, []string{jwtx.AlgorithmHS256})

	sessionKeys := jwtx.NewKeySet()
	require.NoError(t, sessionKeys.AddHMAC("session-hs256", sessionKey))
	sessionVerifier := jwtx.NewVerifier(sessionKeys, testIssuer, []string{jwtx.AlgorithmHS256})

	allowedOrigins := []string{testOrigin}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(keys, allowedOrigins, featureEnabled, "test", st, logger)
	router.Guard = &service.Guard{Verifier: verifier, AllowedOrigins: allowedOrigins}
	router.SessionVerifier = sessionVerifier
	router.LaunchService = &service.LaunchService{
		Store:       st,
		Signer:      launchSigner,
		Issuer:      testIssuer,
		CallbackURL: testIssuer + "/v1/runtime/exchange",
	}
	router.ExchangeService = &service.ExchangeService{
		Store:          st,
		Signer:         runtimeSigner,
		Verifier:       verifier,
		Issuer:         testIssuer,
		AllowedOrigins: allowedOrigins,
	}
	router.Telemetry = &service.TelemetryService{Store: st}
	router.Checkpoints = &service.CheckpointService{Store: st, MaxBytes: 256}
	router.Assets = &service.AssetService{
		Signer: &presign.Signer{
			BaseURL: "http://assets.test:9000",
			Secret:  []byte("asset-test-secret"),
		},
		AllowedTypes: []string{"image/png"},
		URLTTL:       5 * time.Minute,
	}
	router.ApplyRoutes()

	return &testEnv{
		router:        router,
		store:         st,
		verifier:      verifier,
		runtimeSigner: runtimeSigner,
		sessionSigner: sessionSigner,
	}
}

// do executes one request against the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, target, bearer string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// sessionToken mints a platform session credential for userID.
func (e *testEnv) sessionToken(t *testing.T, userID string) string {
	t.Helper()
	claims := jwtx.NewSessionClaims(testIssuer, userID, domain.RoleStudent, time.Hour, time.Now())
	token, err := e.sessionSigner.Sign(claims)
	require.NoError(t, err)
	return token
}

// runtimeToken mints a runtime token directly, bypassing launch/exchange.
func (e *testEnv) runtimeToken(t *testing.T, alias, courseID string, scopes []string, audience string) string {
	t.Helper()
	claims := jwtx.NewRuntimeClaims(testIssuer, alias, courseID, "provider-x", scopes, audience, time.Hour, time.Now())
	token, err := e.runtimeSigner.Sign(claims)
	require.NoError(t, err)
	return token
}

// seedCourse creates a provider + course + enrollment like the platform
// would have.
func (e *testEnv) seedCourse(t *testing.T, teacherID, studentID, assignmentID string) (domain.Course, domain.Enrollment) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	provider := domain.Provider{
		ID:        idx.New().String(),
		Name:      "Acme Runtimes",
		Domain:    "runtime.acme.test",
		CreatedAt: now,
	}
	require.NoError(t, e.store.Providers().CreateProvider(ctx, provider))

	course := domain.Course{
		ID:         idx.New().String(),
		Title:      "Intro to Marsupials",
		TeacherID:  teacherID,
		ProviderID: provider.ID,
		CreatedAt:  now,
	}
	require.NoError(t, e.store.Courses().CreateCourse(ctx, course))

	enrollment := domain.Enrollment{
		ID:           idx.New().String(),
		CourseID:     course.ID,
		UserID:       studentID,
		AssignmentID: assignmentID,
		CreatedAt:    now,
	}
	require.NoError(t, e.store.Enrollments().CreateEnrollment(ctx, enrollment))

	return course, enrollment
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func requireErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, code, envelope.Error.Code)
	require.NotEmpty(t, envelope.Error.Message)
	require.NotEmpty(t, envelope.RequestID)
	require.Equal(t, envelope.RequestID, w.Header().Get("X-Request-Id"))
}
