package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
	"economy-ledger/internal/service"
)

type TransactionHandler struct {
	economyService *service.EconomyService
	money          Money
}

func NewTransactionHandler(economyService *service.EconomyService, money Money) *TransactionHandler {
	return &TransactionHandler{
		economyService: economyService,
		money:          money,
	}
}

// ExchangeRequest takes the amount either in minor units (amount) or as a
// major-unit decimal string (amount_display), not both.
type ExchangeRequest struct {
	From          string      `json:"from"`
	To            string      `json:"to"`
	Amount        json.Number `json:"amount,omitempty"`
	AmountDisplay string      `json:"amount_display,omitempty"`
}

type TransactionResponse struct {
	TransactionID string    `json:"transaction_id"`
	Sequence      uint64    `json:"sequence"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *TransactionHandler) toResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: tx.ID.String(),
		Sequence:      tx.Sequence,
		From:          tx.From.String(),
		To:            tx.To.String(),
		Amount:        tx.Amount,
		AmountDisplay: h.money.Format(tx.Amount),
		CreatedAt:     tx.CreatedAt,
	}
}

func (h *TransactionHandler) toResponses(txs []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, h.toResponse(tx))
	}
	return out
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.economyService.ListTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(txs))
}

func (h *TransactionHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.economyService.ListAccountTransactions(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponses(txs))
}

func (h *TransactionHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req ExchangeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, err := h.parseAmount(req)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.economyService.Exchange(r.Context(), &service.ExchangeRequest{
		FromAccountID: req.From,
		ToAccountID:   req.To,
		Amount:        amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(tx))
}

func (h *TransactionHandler) parseAmount(req ExchangeRequest) (int64, error) {
	switch {
	case req.Amount != "" && req.AmountDisplay != "":
		return 0, errors.NewAppError(errors.InvalidInput, "give either amount or amount_display, not both")
	case req.AmountDisplay != "":
		return h.money.Parse(req.AmountDisplay)
	case req.Amount != "":
		amount, err := req.Amount.Int64()
		if err != nil {
			return 0, errors.ErrInvalidAmount.WithDetails(err.Error())
		}
		return amount, nil
	default:
		return 0, errors.ErrInvalidAmount.WithDetails("amount is required")
	}
}
