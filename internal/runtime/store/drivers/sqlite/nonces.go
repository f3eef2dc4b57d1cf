package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
)

type launchNoncesRepo struct {
	db *sql.DB
}

func (r *launchNoncesRepo) CreateLaunchNonce(ctx context.Context, n domain.LaunchNonce) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO launch_nonces (nonce_hash, course_id, user_id, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)`,
		n.NonceHash, n.CourseID, n.UserID, n.ExpiresAt, n.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *launchNoncesRepo) GetLaunchNonce(ctx context.Context, nonceHash string) (domain.LaunchNonce, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT nonce_hash, course_id, user_id, expires_at, used_at, created_at
		FROM launch_nonces WHERE nonce_hash = ?`, nonceHash)

	var n domain.LaunchNonce
	var usedAt sql.NullTime
	if err := row.Scan(&n.NonceHash, &n.CourseID, &n.UserID, &n.ExpiresAt, &usedAt, &n.CreatedAt); err != nil {
		return domain.LaunchNonce{}, mapNotFound(err)
	}
	n.UsedAt = mapNullTimePtr(usedAt)
	return n, nil
}

// ConsumeLaunchNonce is the single-use gate. The conditional update makes
// concurrent exchanges of the same launch token race safely: the affected
// row count decides the winner, every loser gets ErrNotFound.
func (r *launchNoncesRepo) ConsumeLaunchNonce(ctx context.Context, nonceHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE launch_nonces SET used_at = ?
		WHERE nonce_hash = ? AND used_at IS NULL`,
		time.Now().UTC(), nonceHash,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *launchNoncesRepo) DeleteExpiredLaunchNonces(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM launch_nonces WHERE expires_at < ?`, time.Now().UTC())
	return err
}
