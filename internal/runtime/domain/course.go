package domain

import "time"

// Course is the platform course a runtime launch originates from.
type Course struct {
	ID        string
	Title     string
	TeacherID string // owning teacher; empty when the course has no owner
	// ProviderID links the course to its external runtime provider.
	// Empty for courses without an embedded runtime.
	ProviderID string
	// LaunchURL is the embedded runtime URL; used as the audience fallback
	// when the provider has no registered domain.
	LaunchURL string
	CreatedAt time.Time
}

// Provider is a registered external course-runtime vendor.
type Provider struct {
	ID   string
	Name string
	// Domain the provider serves its runtime from, either a bare host
	// ("runtime.example.com") or a full URL. Determines the audience an
	// exchanged runtime token is bound to.
	Domain    string
	CreatedAt time.Time
}

// Enrollment ties a student to a course, optionally to a specific assignment.
type Enrollment struct {
	ID           string
	CourseID     string
	UserID       string
	AssignmentID string
	CreatedAt    time.Time
}

// Course roles as carried in launch tokens.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)
