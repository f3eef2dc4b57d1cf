package sqlite

import (
	"context"
	"database/sql"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
)

type checkpointsRepo struct {
	db *sql.DB
}

// UpsertCheckpoint stores the latest state for (course, alias, key),
// overwriting any previous save.
func (r *checkpointsRepo) UpsertCheckpoint(ctx context.Context, c domain.Checkpoint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runtime_checkpoints (id, course_id, alias, ckpt_key, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(course_id, alias, ckpt_key) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`,
		c.ID, c.CourseID, c.Alias, c.Key, c.State, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *checkpointsRepo) GetCheckpoint(ctx context.Context, courseID, alias, key string) (domain.Checkpoint, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_id, alias, ckpt_key, state, created_at, updated_at
		FROM runtime_checkpoints
		WHERE course_id = ? AND alias = ? AND ckpt_key = ?`, courseID, alias, key)

	var c domain.Checkpoint
	if err := row.Scan(&c.ID, &c.CourseID, &c.Alias, &c.Key, &c.State, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Checkpoint{}, mapNotFound(err)
	}
	return c, nil
}
