package handler

import (
	"net/http"
	"time"

	"economy-ledger/internal/service"
)

type HealthHandler struct {
	economyService *service.EconomyService
}

func NewHealthHandler(economyService *service.EconomyService) *HealthHandler {
	return &HealthHandler{economyService: economyService}
}

type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Supply    *service.Supply `json:"supply,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Health reports 503 while no economy state is attached.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	supply, err := h.economyService.Supply(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unhealthy",
			Timestamp: now,
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: now,
		Supply:    &supply,
	})
}
