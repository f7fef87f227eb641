package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction records one completed exchange. Values are never modified
// after the ledger appends them.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	Sequence  uint64    `json:"sequence"`
	From      uuid.UUID `json:"from"`
	To        uuid.UUID `json:"to"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

