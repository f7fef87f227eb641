package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"economy-ledger/internal/errors"
)

// dialect holds the statements that differ between the SQL backends.
type dialect struct {
	name       string
	insert     string
	selectLast string
	prune      string
	// savedAt converts the save time into the column's representation.
	savedAt func(time.Time) interface{}
}

// sqlStore appends every save as a new row and keeps only the newest
// `retain` rows. Load returns the newest one.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	retain  int
	logger  *slog.Logger
	now     func() time.Time
}

func (s *sqlStore) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.selectLast).Scan(&payload)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			s.logger.Info("No snapshot stored", "driver", s.dialect.name)
			return nil, nil
		}
		s.logger.Error("Failed to load snapshot", "driver", s.dialect.name, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to load snapshot").WithDetails(err.Error())
	}
	return payload, nil
}

func (s *sqlStore) Save(ctx context.Context, data []byte) error {
	err := withTransaction(ctx, s.db, func(exec SQLExecutor) error {
		if _, err := exec.ExecContext(ctx, s.dialect.insert, data, s.dialect.savedAt(s.now())); err != nil {
			return err
		}
		_, err := exec.ExecContext(ctx, s.dialect.prune, s.retain)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to save snapshot", "driver", s.dialect.name, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to save snapshot").WithDetails(err.Error())
	}

	s.logger.Info("Snapshot saved", "driver", s.dialect.name, "bytes", len(data))
	return nil
}

// Count returns how many snapshots are retained.
func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM economy_snapshots`).Scan(&n)
	return n, err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
