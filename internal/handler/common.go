package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/shopspring/decimal"

	"economy-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// Money renders minor-unit amounts in major units with a fixed number of
// decimal places.
type Money struct {
	Decimals int32
}

func (m Money) Format(minor int64) string {
	return decimal.New(minor, -m.Decimals).StringFixed(m.Decimals)
}

// Parse converts a major-unit string such as "12.50" to minor units. The
// value must be exact at the configured precision and fit in an int64.
func (m Money) Parse(major string) (int64, error) {
	d, err := decimal.NewFromString(major)
	if err != nil {
		return 0, errors.ErrInvalidAmount.WithDetails(err.Error())
	}
	minor := d.Shift(m.Decimals)
	if !minor.IsInteger() {
		return 0, errors.ErrInvalidAmount.WithDetails("amount has more decimal places than the currency")
	}
	if !minor.BigInt().IsInt64() {
		return 0, errors.ErrInvalidAmount.WithDetails("amount out of range")
	}
	return minor.IntPart(), nil
}
