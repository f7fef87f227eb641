package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	// Exchange validation outcomes, reported in this order.
	FromLocked        ErrorCode = "from_locked"
	ToLocked          ErrorCode = "to_locked"
	InsufficientFunds ErrorCode = "insufficient_funds"
	Overflow          ErrorCode = "overflow"

	InvalidAmount       ErrorCode = "invalid_amount"
	InvalidAccountID    ErrorCode = "invalid_account_id"
	InvalidInput        ErrorCode = "invalid_input"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	StateUnavailable    ErrorCode = "state_unavailable"
	CorruptState        ErrorCode = "corrupt_state"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code, so the predefined
// values below work with errors.Is even after WithDetails.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy of e carrying details. The predefined errors are
// shared, so they are never modified in place.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsValidation reports whether the code is one of the expected exchange
// outcomes rather than a fault.
func (e *AppError) IsValidation() bool {
	switch e.Code {
	case FromLocked, ToLocked, InsufficientFunds, Overflow:
		return true
	}
	return false
}

// HTTPStatus maps the error code to the status the API layer responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case FromLocked, ToLocked, InsufficientFunds, Overflow:
		return http.StatusUnprocessableEntity
	case InvalidAmount, InvalidAccountID, InvalidInput, SameAccountTransfer:
		return http.StatusBadRequest
	case StateUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrFromLocked          = NewAppError(FromLocked, "sender account is locked")
	ErrToLocked            = NewAppError(ToLocked, "receiver account is locked")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "insufficient funds")
	ErrOverflow            = NewAppError(Overflow, "balance would overflow")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be positive")
	ErrInvalidAccountID    = NewAppError(InvalidAccountID, "invalid account id")
	ErrSameAccountTransfer = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrStateUnavailable    = NewAppError(StateUnavailable, "economy state is not available")
	ErrCorruptState        = NewAppError(CorruptState, "persisted economy state is corrupt")
)

// CorruptStateError builds a corrupt_state error describing what was wrong
// with the persisted input.
func CorruptStateError(format string, args ...interface{}) *AppError {
	return ErrCorruptState.WithDetails(fmt.Sprintf(format, args...))
}
