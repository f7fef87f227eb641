package service

import (
	"sync/atomic"

	"economy-ledger/internal/errors"
	"economy-ledger/internal/ledger"
)

// Host holds the ledger of the running economy. The lifecycle owner attaches
// it once state is loaded and detaches it on shutdown; callers that arrive
// while nothing is attached get state_unavailable instead of a nil ledger.
type Host struct {
	current atomic.Pointer[ledger.Ledger]
}

func NewHost() *Host {
	return &Host{}
}

// Attach makes l the current ledger and returns the previous one, if any.
func (h *Host) Attach(l *ledger.Ledger) *ledger.Ledger {
	return h.current.Swap(l)
}

// Detach removes the current ledger and returns it.
func (h *Host) Detach() *ledger.Ledger {
	return h.current.Swap(nil)
}

// Ledger returns the attached ledger or ErrStateUnavailable.
func (h *Host) Ledger() (*ledger.Ledger, error) {
	l := h.current.Load()
	if l == nil {
		return nil, errors.ErrStateUnavailable
	}
	return l, nil
}
