// Package codec converts ledger state to and from the bytes kept by a
// snapshot store.
//
// The document is JSON with an explicit format version. Accounts are always
// written; the transaction log is only written when the codec is built with
// WithTransactions(true). A document without transactions restores a ledger
// with an empty log.
package codec

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
	"economy-ledger/internal/ledger"
)

// FormatVersion is written into every document. Documents with any other
// version are rejected as corrupt.
const FormatVersion = 1

type Codec struct {
	includeTransactions bool
	now                 func() time.Time
}

type Option func(*Codec)

// WithTransactions controls whether the transaction log is persisted.
func WithTransactions(include bool) Option {
	return func(c *Codec) {
		c.includeTransactions = include
	}
}

// WithClock sets the time source for the saved_at field.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type document struct {
	FormatVersion int                 `json:"format_version"`
	SavedAt       time.Time           `json:"saved_at"`
	Accounts      []accountRecord     `json:"accounts"`
	Transactions  []transactionRecord `json:"transactions,omitempty"`
}

type accountRecord struct {
	ID      uuid.UUID `json:"id"`
	Balance int64     `json:"balance"`
	Locked  bool      `json:"locked"`
}

type transactionRecord struct {
	ID        uuid.UUID `json:"id"`
	Sequence  uint64    `json:"sequence"`
	From      uuid.UUID `json:"from"`
	To        uuid.UUID `json:"to"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Serialize snapshots l and encodes it.
func (c *Codec) Serialize(l *ledger.Ledger) ([]byte, error) {
	return c.Marshal(l.Snapshot())
}

// Marshal encodes state. Accounts keep the order they have in state, which
// for ledger snapshots is sorted by id, so equal states encode identically
// apart from saved_at.
func (c *Codec) Marshal(state domain.State) ([]byte, error) {
	doc := document{
		FormatVersion: FormatVersion,
		SavedAt:       c.now(),
		Accounts:      make([]accountRecord, 0, len(state.Accounts)),
	}
	for _, acc := range state.Accounts {
		doc.Accounts = append(doc.Accounts, accountRecord{
			ID:      acc.ID,
			Balance: acc.Balance,
			Locked:  acc.Locked,
		})
	}
	if c.includeTransactions {
		for _, tx := range state.Transactions {
			doc.Transactions = append(doc.Transactions, transactionRecord(tx))
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to encode ledger state").WithDetails(err.Error())
	}
	return data, nil
}

// Deserialize decodes data into a new ledger. Empty input gives an empty
// ledger; anything that does not decode into a valid state gives a
// corrupt_state error and no ledger.
func (c *Codec) Deserialize(data []byte, opts ...ledger.Option) (*ledger.Ledger, error) {
	state, err := c.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return ledger.FromState(state, opts...)
}

// Unmarshal decodes and validates data.
func (c *Codec) Unmarshal(data []byte) (domain.State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.State{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return domain.State{}, errors.CorruptStateError("decode: %v", err)
	}
	if dec.More() {
		return domain.State{}, errors.CorruptStateError("trailing data after document")
	}
	if doc.FormatVersion != FormatVersion {
		return domain.State{}, errors.CorruptStateError("unsupported format version %d", doc.FormatVersion)
	}

	state := domain.State{
		Accounts: make([]domain.Account, 0, len(doc.Accounts)),
	}
	for _, rec := range doc.Accounts {
		state.Accounts = append(state.Accounts, domain.Account{
			ID:      rec.ID,
			Balance: rec.Balance,
			Locked:  rec.Locked,
		})
	}
	for _, rec := range doc.Transactions {
		state.Transactions = append(state.Transactions, domain.Transaction(rec))
	}

	if err := ledger.Validate(state); err != nil {
		return domain.State{}, err
	}
	return state, nil
}
