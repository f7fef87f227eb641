package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in a local SQLite database.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(ctx context.Context, path string, retain int, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(ctx, db, "sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("Opened SQLite snapshot store", "path", path)
	return &SQLiteStore{sqlStore{
		db: db,
		dialect: dialect{
			name:       "sqlite",
			insert:     `INSERT INTO economy_snapshots (payload, saved_at) VALUES (?, ?)`,
			selectLast: `SELECT payload FROM economy_snapshots ORDER BY id DESC LIMIT 1`,
			prune: `DELETE FROM economy_snapshots WHERE id NOT IN (
				SELECT id FROM economy_snapshots ORDER BY id DESC LIMIT ?)`,
			savedAt: func(t time.Time) interface{} { return t.UTC().UnixMilli() },
		},
		retain: retainOrDefault(retain),
		logger: logger,
		now:    time.Now,
	}}, nil
}

func retainOrDefault(retain int) int {
	if retain <= 0 {
		return 1
	}
	return retain
}
