package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
)

type eventsRepo struct {
	db *sql.DB
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.RuntimeEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runtime_events (id, course_id, alias, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.CourseID, e.Alias, e.Kind, e.Payload, e.CreatedAt,
	)
	return err
}

func (r *eventsRepo) CountEvents(ctx context.Context, courseID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM runtime_events WHERE course_id = ?`, courseID).Scan(&n)
	return n, err
}

func (r *eventsRepo) DeleteEventsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM runtime_events WHERE created_at < ?`, cutoff)
	return err
}
