// Package lifecycle loads the ledger from its snapshot store at startup and
// writes it back periodically and at shutdown.
package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"economy-ledger/internal/codec"
	"economy-ledger/internal/config"
	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
	"economy-ledger/internal/ledger"
)

// CorruptPolicy decides what Load does with a snapshot that fails to decode.
type CorruptPolicy int

const (
	// PolicyFail returns the corrupt_state error and aborts startup.
	PolicyFail CorruptPolicy = iota
	// PolicyEmpty logs the error and starts with an empty ledger. The stored
	// snapshot is left untouched until the next save.
	PolicyEmpty
)

// ParsePolicy maps the configuration value to a CorruptPolicy.
func ParsePolicy(s string) (CorruptPolicy, error) {
	switch s {
	case config.CorruptPolicyFail:
		return PolicyFail, nil
	case config.CorruptPolicyEmpty:
		return PolicyEmpty, nil
	}
	return PolicyFail, fmt.Errorf("unknown corrupt state policy %q", s)
}

type Manager struct {
	store      domain.SnapshotStore
	codec      *codec.Codec
	policy     CorruptPolicy
	logger     *slog.Logger
	ledgerOpts []ledger.Option
}

func NewManager(store domain.SnapshotStore, c *codec.Codec, policy CorruptPolicy, logger *slog.Logger, opts ...ledger.Option) *Manager {
	return &Manager{
		store:      store,
		codec:      c,
		policy:     policy,
		logger:     logger,
		ledgerOpts: opts,
	}
}

// Load reads the stored snapshot and builds a ledger from it. A store with
// nothing saved yields an empty ledger.
func (m *Manager) Load(ctx context.Context) (*ledger.Ledger, error) {
	data, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	l, err := m.codec.Deserialize(data, m.ledgerOpts...)
	if err != nil {
		if !stderrors.Is(err, errors.ErrCorruptState) || m.policy == PolicyFail {
			return nil, fmt.Errorf("restore ledger: %w", err)
		}
		m.logger.Error("Persisted economy state is corrupt, starting empty", "error", err)
		return ledger.New(m.ledgerOpts...), nil
	}

	stats := l.Stats()
	m.logger.Info("Economy state loaded",
		"accounts", stats.Accounts,
		"transactions", stats.Transactions,
		"bytes", len(data))
	return l, nil
}

// Save writes the current state of l. The snapshot is taken under the
// ledger lock; encoding and I/O happen after it is released.
func (m *Manager) Save(ctx context.Context, l *ledger.Ledger) error {
	data, err := m.codec.Serialize(l)
	if err != nil {
		return fmt.Errorf("serialize ledger: %w", err)
	}
	if err := m.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RunAutosave saves l every interval until ctx is cancelled, then saves
// once more with a fresh context bounded by finalTimeout. A non-positive
// interval disables the periodic saves but keeps the final one.
func (m *Manager) RunAutosave(ctx context.Context, l *ledger.Ledger, interval, finalTimeout time.Duration) error {
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if err := m.Save(ctx, l); err != nil {
					m.logger.Error("Autosave failed", "error", err)
				}
			}
		}
	} else {
		<-ctx.Done()
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), finalTimeout)
	defer cancel()
	if err := m.Save(saveCtx, l); err != nil {
		m.logger.Error("Final save failed", "error", err)
		return err
	}
	m.logger.Info("Economy state saved")
	return nil
}
