package domain

import (
	"github.com/google/uuid"
)

// Account is a balance holder. Balance is in the smallest currency unit and
// is never negative.
type Account struct {
	ID      uuid.UUID `json:"id"`
	Balance int64     `json:"balance"`
	Locked  bool      `json:"locked"`
}

// NewAccount returns the zero-balance, unlocked account every id starts as.
func NewAccount(id uuid.UUID) Account {
	return Account{ID: id}
}

