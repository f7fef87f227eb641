// Package ledger holds the authoritative account table and transaction log
// of the economy. Every read and write goes through one RWMutex: exchanges
// touch two accounts at once, and a single critical section keeps the
// validate-then-mutate sequence atomic without any lock ordering.
package ledger

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
)

// MaxBalance is the largest balance an account can hold.
const MaxBalance int64 = math.MaxInt64

type Ledger struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
	log      []domain.Transaction
	// history holds, per account, indexes into log in chronological order.
	history map[uuid.UUID][]int

	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

type Option func(*Ledger)

// WithLogger sets the logger used for exchange and lock events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides how transaction ids are produced.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(l *Ledger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[uuid.UUID]*domain.Account),
		history:  make(map[uuid.UUID][]int),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromState creates a ledger holding a copy of state. The state is validated
// first; an inconsistent state yields a corrupt_state error.
func FromState(state domain.State, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	if err := l.Restore(state); err != nil {
		return nil, err
	}
	return l, nil
}

// GetAccount returns the account, creating a zero-balance unlocked one on
// first reference.
func (l *Ledger) GetAccount(id uuid.UUID) domain.Account {
	l.mu.RLock()
	acc, ok := l.accounts[id]
	if ok {
		cp := *acc
		l.mu.RUnlock()
		return cp
	}
	l.mu.RUnlock()

	l.mu.Lock()
	acc, created := l.accountLocked(id)
	cp := *acc
	l.mu.Unlock()

	if created {
		l.logger.Info("Account created", "account_id", id)
	}
	return cp
}

// Balance returns the balance of id, or 0 for an unknown id. Unlike
// GetAccount it never creates an entry.
func (l *Ledger) Balance(id uuid.UUID) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acc, ok := l.accounts[id]; ok {
		return acc.Balance
	}
	return 0
}

// Accounts returns a copy of every known account ordered by id.
func (l *Ledger) Accounts() []domain.Account {
	l.mu.RLock()
	out := make([]domain.Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, *acc)
	}
	l.mu.RUnlock()

	sortAccounts(out)
	return out
}

// Transactions returns the global log in the order the exchanges happened.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.log)
}

// AccountTransactions returns the transactions id sent or received, oldest
// first. Unknown ids yield an empty slice and are not created.
func (l *Ledger) AccountTransactions(id uuid.UUID) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.history[id]
	out := make([]domain.Transaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.log[i])
	}
	return out
}

// Exchange moves amount from one account to another. Both accounts are
// created if absent. Checks run in a fixed order and the first failure is
// returned: from_locked, to_locked, insufficient_funds, overflow. On failure
// no balance changes and nothing is appended to the log.
func (l *Ledger) Exchange(from, to uuid.UUID, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, errors.ErrInvalidAmount
	}
	if from == to {
		return domain.Transaction{}, errors.ErrSameAccountTransfer
	}

	l.mu.Lock()
	tx, err := l.exchangeLocked(from, to, amount)
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("Exchange rejected",
			"from", from,
			"to", to,
			"amount", amount,
			"error", err)
		return domain.Transaction{}, err
	}

	l.logger.Info("Exchange completed",
		"transaction_id", tx.ID,
		"sequence", tx.Sequence,
		"from", from,
		"to", to,
		"amount", amount)
	return tx, nil
}

func (l *Ledger) exchangeLocked(from, to uuid.UUID, amount int64) (domain.Transaction, error) {
	src, _ := l.accountLocked(from)
	dst, _ := l.accountLocked(to)

	if src.Locked {
		return domain.Transaction{}, errors.ErrFromLocked
	}
	if dst.Locked {
		return domain.Transaction{}, errors.ErrToLocked
	}
	if src.Balance < amount {
		return domain.Transaction{}, errors.ErrInsufficientFunds.WithDetails(
			fmt.Sprintf("balance %d, amount %d", src.Balance, amount))
	}
	if MaxBalance-dst.Balance < amount {
		return domain.Transaction{}, errors.ErrOverflow.WithDetails(
			fmt.Sprintf("balance %d, amount %d", dst.Balance, amount))
	}

	tx := domain.Transaction{
		ID:        l.newID(),
		Sequence:  uint64(len(l.log)) + 1,
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: l.now(),
	}

	src.Balance -= amount
	dst.Balance += amount
	l.appendLocked(tx)
	return tx, nil
}

// Lock freezes the account for both sending and receiving.
func (l *Ledger) Lock(id uuid.UUID) {
	l.setLocked(id, true)
	l.logger.Info("Locked account", "account_id", id)
}

// Unlock lifts a previous Lock.
func (l *Ledger) Unlock(id uuid.UUID) {
	l.setLocked(id, false)
	l.logger.Info("Unlocked account", "account_id", id)
}

func (l *Ledger) setLocked(id uuid.UUID, locked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, _ := l.accountLocked(id)
	acc.Locked = locked
}

// Snapshot copies the full state under the same lock exchanges take, so it
// never contains a half-applied exchange.
func (l *Ledger) Snapshot() domain.State {
	l.mu.RLock()
	state := domain.State{
		Accounts:     make([]domain.Account, 0, len(l.accounts)),
		Transactions: slices.Clone(l.log),
	}
	for _, acc := range l.accounts {
		state.Accounts = append(state.Accounts, *acc)
	}
	l.mu.RUnlock()

	sortAccounts(state.Accounts)
	return state
}

// Restore replaces the whole ledger with a copy of state. An invalid state
// is rejected and the current contents are kept.
func (l *Ledger) Restore(state domain.State) error {
	if err := Validate(state); err != nil {
		return err
	}

	accounts := make(map[uuid.UUID]*domain.Account, len(state.Accounts))
	for _, acc := range state.Accounts {
		cp := acc
		accounts[acc.ID] = &cp
	}
	log := slices.Clone(state.Transactions)
	history := make(map[uuid.UUID][]int)
	for i, tx := range log {
		history[tx.From] = append(history[tx.From], i)
		history[tx.To] = append(history[tx.To], i)
	}

	l.mu.Lock()
	l.accounts = accounts
	l.log = log
	l.history = history
	l.mu.Unlock()

	l.logger.Info("Ledger restored",
		"accounts", len(accounts),
		"transactions", len(log))
	return nil
}

// TotalSupply sums every balance. Exchanges conserve it.
func (l *Ledger) TotalSupply() (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, acc := range l.accounts {
		if MaxBalance-total < acc.Balance {
			return 0, errors.ErrOverflow.WithDetails("total supply exceeds int64")
		}
		total += acc.Balance
	}
	return total, nil
}

type Stats struct {
	Accounts       int `json:"accounts"`
	LockedAccounts int `json:"locked_accounts"`
	Transactions   int `json:"transactions"`
}

func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{Accounts: len(l.accounts), Transactions: len(l.log)}
	for _, acc := range l.accounts {
		if acc.Locked {
			s.LockedAccounts++
		}
	}
	return s
}

// accountLocked returns the stored account for id, inserting a fresh one if
// needed. Callers must hold the write lock.
func (l *Ledger) accountLocked(id uuid.UUID) (*domain.Account, bool) {
	if acc, ok := l.accounts[id]; ok {
		return acc, false
	}
	acc := domain.NewAccount(id)
	l.accounts[id] = &acc
	return &acc, true
}

func (l *Ledger) appendLocked(tx domain.Transaction) {
	l.log = append(l.log, tx)
	i := len(l.log) - 1
	l.history[tx.From] = append(l.history[tx.From], i)
	l.history[tx.To] = append(l.history[tx.To], i)
}

func sortAccounts(accounts []domain.Account) {
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}
