package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists snapshots in PostgreSQL.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore connects using a lib/pq connection string and applies the
// schema.
func NewPostgresStore(ctx context.Context, connStr string, retain int, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", describePQ(err))
	}
	if err := runMigrations(ctx, db, "postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", describePQ(err))
	}

	logger.Info("Successfully connected to database")
	return &PostgresStore{sqlStore{
		db: db,
		dialect: dialect{
			name:       "postgres",
			insert:     `INSERT INTO economy_snapshots (payload, saved_at) VALUES ($1, $2)`,
			selectLast: `SELECT payload FROM economy_snapshots ORDER BY id DESC LIMIT 1`,
			prune: `DELETE FROM economy_snapshots WHERE id NOT IN (
				SELECT id FROM economy_snapshots ORDER BY id DESC LIMIT $1)`,
			savedAt: func(t time.Time) interface{} { return t.UTC() },
		},
		retain: retainOrDefault(retain),
		logger: logger,
		now:    time.Now,
	}}, nil
}

// describePQ adds the SQLSTATE code to server errors.
func describePQ(err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	return err
}
