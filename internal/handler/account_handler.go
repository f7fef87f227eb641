package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/service"
)

type AccountHandler struct {
	economyService *service.EconomyService
	money          Money
}

func NewAccountHandler(economyService *service.EconomyService, money Money) *AccountHandler {
	return &AccountHandler{
		economyService: economyService,
		money:          money,
	}
}

type AccountResponse struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Locked         bool   `json:"locked"`
}

func (h *AccountHandler) toResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      account.ID.String(),
		Balance:        account.Balance,
		BalanceDisplay: h.money.Format(account.Balance),
		Locked:         account.Locked,
	}
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.economyService.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		response = append(response, h.toResponse(account))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.economyService.GetAccount(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(account))
}

func (h *AccountHandler) LockAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.economyService.Lock(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(account))
}

func (h *AccountHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.economyService.Unlock(r.Context(), mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(account))
}
