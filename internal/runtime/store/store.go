package store

import (
	"context"
	"errors"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Courses() Courses
	Providers() Providers
	Enrollments() Enrollments
	LaunchNonces() LaunchNonces
	Aliases() Aliases
	Checkpoints() Checkpoints
	Events() Events

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Courses interface {
	// GetCourseByID returns a course by id.
	GetCourseByID(ctx context.Context, id string) (domain.Course, error)

	// CreateCourse inserts a new course (id is provided by app via ULID).
	CreateCourse(ctx context.Context, c domain.Course) error
}

type Providers interface {
	// GetProviderByID returns a provider by id.
	GetProviderByID(ctx context.Context, id string) (domain.Provider, error)

	// CreateProvider inserts a new provider.
	CreateProvider(ctx context.Context, p domain.Provider) error
}

type Enrollments interface {
	// GetEnrollmentByID returns an enrollment by id.
	GetEnrollmentByID(ctx context.Context, id string) (domain.Enrollment, error)

	// GetEnrollment returns the enrollment for a (course, user) pair.
	GetEnrollment(ctx context.Context, courseID, userID string) (domain.Enrollment, error)

	// CreateEnrollment inserts a new enrollment.
	CreateEnrollment(ctx context.Context, e domain.Enrollment) error
}

type LaunchNonces interface {
	// CreateLaunchNonce records a freshly minted launch nonce.
	CreateLaunchNonce(ctx context.Context, n domain.LaunchNonce) error

	// GetLaunchNonce fetches a nonce record by its fingerprint.
	GetLaunchNonce(ctx context.Context, nonceHash string) (domain.LaunchNonce, error)

	// ConsumeLaunchNonce marks a nonce used via a conditional update
	// (used_at IS NULL). Exactly one of N concurrent callers succeeds;
	// the rest get ErrNotFound.
	ConsumeLaunchNonce(ctx context.Context, nonceHash string) error

	// DeleteExpiredLaunchNonces is housekeeping.
	DeleteExpiredLaunchNonces(ctx context.Context) error
}

type Aliases interface {
	// GetAlias returns the alias mapping for a (user, provider) pair.
	GetAlias(ctx context.Context, userID, providerID string) (domain.Alias, error)

	// GetAliasByValue reverse-resolves an alias to its mapping.
	GetAliasByValue(ctx context.Context, alias string) (domain.Alias, error)

	// CreateAlias inserts a new mapping. Returns ErrAlreadyExists when a
	// concurrent caller won the (user, provider) uniqueness race; the
	// caller must then re-read.
	CreateAlias(ctx context.Context, a domain.Alias) error
}

type Checkpoints interface {
	// UpsertCheckpoint creates or replaces the state for
	// (course, alias, key).
	UpsertCheckpoint(ctx context.Context, c domain.Checkpoint) error

	// GetCheckpoint returns the checkpoint for (course, alias, key).
	GetCheckpoint(ctx context.Context, courseID, alias, key string) (domain.Checkpoint, error)
}

type Events interface {
	// CreateEvent appends a telemetry record.
	CreateEvent(ctx context.Context, e domain.RuntimeEvent) error

	// CountEvents returns the number of events recorded for a course.
	CountEvents(ctx context.Context, courseID string) (int64, error)

	// DeleteEventsBefore is housekeeping for old telemetry.
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) error
}
