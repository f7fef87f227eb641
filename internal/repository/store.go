package repository

import (
	"context"
	"fmt"
	"log/slog"

	"economy-ledger/internal/config"
	"economy-ledger/internal/domain"
)

// Open returns the snapshot store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.SnapshotStore, error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		return NewFileStore(cfg.StorePath, logger)
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.StorePath, cfg.SnapshotRetention, logger)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.GetDBConnectionString(), cfg.SnapshotRetention, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
