package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes writers (no SQLITE_BUSY under
	// concurrent exchanges) and keeps the pragma below in effect for every
	// statement.
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Courses() store.Courses         { return &coursesRepo{db: s.db} }
func (s *Store) Providers() store.Providers     { return &providersRepo{db: s.db} }
func (s *Store) Enrollments() store.Enrollments { return &enrollmentsRepo{db: s.db} }
func (s *Store) LaunchNonces() store.LaunchNonces {
	return &launchNoncesRepo{db: s.db}
}
func (s *Store) Aliases() store.Aliases         { return &aliasesRepo{db: s.db} }
func (s *Store) Checkpoints() store.Checkpoints { return &checkpointsRepo{db: s.db} }
func (s *Store) Events() store.Events           { return &eventsRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint translates a sqlite uniqueness violation into the store
// sentinel so callers can resolve insert races.
func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}
