package ledger

import (
	"github.com/google/uuid"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
)

// Validate checks that state could have been produced by a ledger: unique
// account ids, non-negative balances whose sum fits in an int64, and a
// transaction log whose entries are numbered 1..n and only reference known
// accounts.
func Validate(state domain.State) error {
	seen := make(map[uuid.UUID]struct{}, len(state.Accounts))
	var total int64
	for _, acc := range state.Accounts {
		if _, dup := seen[acc.ID]; dup {
			return errors.CorruptStateError("account %s appears more than once", acc.ID)
		}
		if acc.Balance < 0 {
			return errors.CorruptStateError("account %s has negative balance %d", acc.ID, acc.Balance)
		}
		if MaxBalance-total < acc.Balance {
			return errors.CorruptStateError("total supply exceeds %d at account %s", MaxBalance, acc.ID)
		}
		total += acc.Balance
		seen[acc.ID] = struct{}{}
	}

	for i, tx := range state.Transactions {
		if tx.Sequence != uint64(i)+1 {
			return errors.CorruptStateError("transaction %d has sequence %d", i+1, tx.Sequence)
		}
		if tx.Amount <= 0 {
			return errors.CorruptStateError("transaction %d has non-positive amount %d", tx.Sequence, tx.Amount)
		}
		if tx.From == tx.To {
			return errors.CorruptStateError("transaction %d transfers %s to itself", tx.Sequence, tx.From)
		}
		if _, ok := seen[tx.From]; !ok {
			return errors.CorruptStateError("transaction %d references unknown account %s", tx.Sequence, tx.From)
		}
		if _, ok := seen[tx.To]; !ok {
			return errors.CorruptStateError("transaction %d references unknown account %s", tx.Sequence, tx.To)
		}
	}
	return nil
}
