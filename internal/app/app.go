// Package app assembles the economy service from its configuration and
// owns its lifecycle: load on start, autosave while running, final save on
// shutdown.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"economy-ledger/internal/codec"
	"economy-ledger/internal/config"
	"economy-ledger/internal/domain"
	"economy-ledger/internal/events"
	"economy-ledger/internal/handler"
	"economy-ledger/internal/ledger"
	"economy-ledger/internal/lifecycle"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/server"
	"economy-ledger/internal/service"
	"economy-ledger/internal/telemetry"
)

type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     domain.SnapshotStore
	publisher domain.Publisher
	manager   *lifecycle.Manager
	host      *service.Host
	economy   *service.EconomyService
	ledger    *ledger.Ledger
	server    *server.Server

	shutdownTelemetry func(context.Context) error
	stopAutosave      context.CancelFunc
	autosaveDone      chan error
}

// New opens the snapshot store, restores the ledger and builds the HTTP
// server. Nothing is served until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	policy, err := lifecycle.ParsePolicy(cfg.CorruptStatePolicy)
	if err != nil {
		return nil, err
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	a := &App{
		cfg:               cfg,
		logger:            logger,
		shutdownTelemetry: shutdownTelemetry,
	}

	a.store, err = repository.Open(ctx, cfg, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	a.manager = lifecycle.NewManager(a.store,
		codec.New(codec.WithTransactions(cfg.PersistTransactions)),
		policy, logger, ledger.WithLogger(logger))

	a.ledger, err = a.manager.Load(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	if cfg.NATSURL != "" {
		a.publisher, err = events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
	} else {
		a.publisher = events.Nop{}
	}

	a.host = service.NewHost()
	a.host.Attach(a.ledger)

	a.economy = service.NewEconomyService(a.host, a.publisher, logger)
	a.server = server.NewServer(a.economy, handler.Money{Decimals: cfg.CurrencyDecimals}, logger)
	return a, nil
}

// Start begins serving and autosaving. It returns the port actually bound.
func (a *App) Start() (string, error) {
	port, err := a.server.Start(a.cfg.ServerPort)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopAutosave = cancel
	a.autosaveDone = make(chan error, 1)
	go func() {
		a.autosaveDone <- a.manager.RunAutosave(ctx, a.ledger, a.cfg.AutosaveInterval, a.cfg.ShutdownTimeout)
	}()

	return port, nil
}

// Shutdown stops accepting requests, detaches the ledger, writes the final
// snapshot and releases every resource. All failures are reported.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}

	a.host.Detach()

	if a.stopAutosave != nil {
		a.stopAutosave()
		if err := <-a.autosaveDone; err != nil {
			errs = append(errs, err)
		}
	} else if err := a.manager.Save(ctx, a.ledger); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, a.close(ctx)...)
	return stderrors.Join(errs...)
}

func (a *App) close(ctx context.Context) []error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := a.shutdownTelemetry(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	return errs
}

// BaseURL returns the address the server listens on.
func (a *App) BaseURL() string {
	return a.server.GetBaseURL()
}

// Economy is the entry point for game side actions. Once Shutdown has
// detached the ledger every call fails with state_unavailable, so nothing
// can change after the final save.
func (a *App) Economy() *service.EconomyService {
	return a.economy
}
