package sqlite

import (
	"context"
	"database/sql"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
)

type aliasesRepo struct {
	db *sql.DB
}

func (r *aliasesRepo) GetAlias(ctx context.Context, userID, providerID string) (domain.Alias, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider_id, alias, created_at
		FROM runtime_aliases WHERE user_id = ? AND provider_id = ?`, userID, providerID)
	return scanAlias(row)
}

func (r *aliasesRepo) GetAliasByValue(ctx context.Context, alias string) (domain.Alias, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider_id, alias, created_at
		FROM runtime_aliases WHERE alias = ?`, alias)
	return scanAlias(row)
}

// CreateAlias relies on the (user_id, provider_id) unique constraint for
// first-write-wins semantics; losers of the insert race get
// store.ErrAlreadyExists and must re-read.
func (r *aliasesRepo) CreateAlias(ctx context.Context, a domain.Alias) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runtime_aliases (id, user_id, provider_id, alias, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ProviderID, a.Alias, a.CreatedAt,
	)
	return mapConstraint(err)
}

func scanAlias(row *sql.Row) (domain.Alias, error) {
	var a domain.Alias
	if err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.Alias, &a.CreatedAt); err != nil {
		return domain.Alias{}, mapNotFound(err)
	}
	return a, nil
}
