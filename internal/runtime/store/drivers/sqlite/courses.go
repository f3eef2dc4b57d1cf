package sqlite

import (
	"context"
	"database/sql"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
)

type coursesRepo struct {
	db *sql.DB
}

func (r *coursesRepo) GetCourseByID(ctx context.Context, id string) (domain.Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, teacher_id, provider_id, launch_url, created_at
		FROM courses WHERE id = ?`, id)

	var c domain.Course
	var teacherID, providerID, launchURL sql.NullString
	if err := row.Scan(&c.ID, &c.Title, &teacherID, &providerID, &launchURL, &c.CreatedAt); err != nil {
		return domain.Course{}, mapNotFound(err)
	}
	c.TeacherID = mapNullString(teacherID)
	c.ProviderID = mapNullString(providerID)
	c.LaunchURL = mapNullString(launchURL)
	return c, nil
}

func (r *coursesRepo) CreateCourse(ctx context.Context, c domain.Course) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, teacher_id, provider_id, launch_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, mapStringNull(c.TeacherID), mapStringNull(c.ProviderID),
		mapStringNull(c.LaunchURL), c.CreatedAt,
	)
	return mapConstraint(err)
}

type providersRepo struct {
	db *sql.DB
}

func (r *providersRepo) GetProviderByID(ctx context.Context, id string) (domain.Provider, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, domain, created_at FROM providers WHERE id = ?`, id)

	var p domain.Provider
	var pdomain sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &pdomain, &p.CreatedAt); err != nil {
		return domain.Provider{}, mapNotFound(err)
	}
	p.Domain = mapNullString(pdomain)
	return p, nil
}

func (r *providersRepo) CreateProvider(ctx context.Context, p domain.Provider) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO providers (id, name, domain, created_at)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, mapStringNull(p.Domain), p.CreatedAt,
	)
	return mapConstraint(err)
}

type enrollmentsRepo struct {
	db *sql.DB
}

func (r *enrollmentsRepo) GetEnrollmentByID(ctx context.Context, id string) (domain.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_id, user_id, assignment_id, created_at
		FROM enrollments WHERE id = ?`, id)
	return scanEnrollment(row)
}

func (r *enrollmentsRepo) GetEnrollment(ctx context.Context, courseID, userID string) (domain.Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_id, user_id, assignment_id, created_at
		FROM enrollments WHERE course_id = ? AND user_id = ?`, courseID, userID)
	return scanEnrollment(row)
}

func (r *enrollmentsRepo) CreateEnrollment(ctx context.Context, e domain.Enrollment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, course_id, user_id, assignment_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CourseID, e.UserID, mapStringNull(e.AssignmentID), e.CreatedAt,
	)
	return mapConstraint(err)
}

func scanEnrollment(row *sql.Row) (domain.Enrollment, error) {
	var e domain.Enrollment
	var assignmentID sql.NullString
	if err := row.Scan(&e.ID, &e.CourseID, &e.UserID, &assignmentID, &e.CreatedAt); err != nil {
		return domain.Enrollment{}, mapNotFound(err)
	}
	e.AssignmentID = mapNullString(assignmentID)
	return e, nil
}
