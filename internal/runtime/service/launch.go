package service

import (
	"context"
	"errors"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

var (
	// ErrEnrollmentNotFound means the referenced enrollment does not exist.
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrNotEntitled means the caller is neither the enrolled student nor
	// the owning teacher of the course.
	ErrNotEntitled = errors.New("caller not entitled to launch")
)

// LaunchService mints one-time launch tokens that hand a platform session
// off to an external course runtime.
type LaunchService struct {
	Store  store.Store
	Signer jwtx.Signer
	Issuer string

	// CallbackURL is the exchange endpoint embedded in every launch token.
	CallbackURL string

	// TokenTTL defaults to jwtx.DefaultLaunchTokenTTL when zero.
	TokenTTL time.Duration
}

// LaunchRequest captures the validated inputs for issuing a launch token.
type LaunchRequest struct {
	// EnrollmentID of the enrollment the launch is for.
	EnrollmentID string

	// CallerID is the authenticated platform user initiating the launch.
	CallerID string

	// Scopes optionally narrows the role's default grant. Scopes outside
	// the default grant are silently dropped, never added.
	Scopes []string
}

// LaunchResponse is the issued token and its expiry.
type LaunchResponse struct {
	Token     string
	ExpiresAt time.Time
}

// IssueLaunchToken checks entitlement, records the nonce and signs a launch
// token.
//
// The nonce record is written best-effort: losing it costs single-use
// enforcement for this one token, which the design accepts over failing the
// launch outright.
func (s *LaunchService) IssueLaunchToken(ctx context.Context, req LaunchRequest) (*LaunchResponse, error) {
	log := slogx.FromContext(ctx)

	enrollment, err := s.Store.Enrollments().GetEnrollmentByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}

	course, err := s.Store.Courses().GetCourseByID(ctx, enrollment.CourseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}

	var role string
	switch {
	case course.TeacherID != "" && req.CallerID == course.TeacherID:
		role = domain.RoleTeacher
	case req.CallerID == enrollment.UserID:
		role = domain.RoleStudent
	default:
		return nil, ErrNotEntitled
	}

	scopes := narrowScopes(domain.DefaultScopesForRole(role), req.Scopes)

	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultLaunchTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	record := domain.LaunchNonce{
		NonceHash: cryptox.FingerprintToken(nonce),
		CourseID:  course.ID,
		UserID:    req.CallerID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.Store.LaunchNonces().CreateLaunchNonce(ctx, record); err != nil {
		log.Warn("launch: nonce record not persisted, single-use unenforceable for this token",
			"course_id", course.ID, "error", err)
	}

	claims := jwtx.NewLaunchClaims(s.Issuer, req.CallerID, course.ID, role, scopes, nonce, s.CallbackURL, ttl, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &LaunchResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// narrowScopes intersects a requested scope set with the granted one. An
// empty request means the full grant.
func narrowScopes(granted, requested []string) []string {
	if len(requested) == 0 {
		return granted
	}

	out := make([]string, 0, len(requested))
	for _, scope := range granted {
		for _, want := range requested {
			if scope == want {
				out = append(out, scope)
				break
			}
		}
	}
	return out
}
