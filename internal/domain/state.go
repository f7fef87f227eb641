package domain

import (
	"context"
)

// State is a point-in-time copy of everything a ledger holds. Accounts are
// ordered by id and transactions by sequence.
type State struct {
	Accounts     []Account
	Transactions []Transaction
}

// SnapshotStore keeps the serialized ledger between process runs.
// Load returns nil data and a nil error when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Publisher announces completed transactions to interested parties.
type Publisher interface {
	PublishTransaction(ctx context.Context, tx Transaction) error
	Close() error
}
