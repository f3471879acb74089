package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/service"
)

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	budgets *service.BudgetService
	log     zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(budgets *service.BudgetService, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{budgets: budgets, log: log}
}

// Get handles GET /api/budget
func (h *BudgetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	status, err := h.budgets.GetCurrent(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get budget")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, status)
}

// Update handles PUT /api/budget
func (h *BudgetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	budget, err := h.budgets.Update(r.Context(), ownerID, req.Amount)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, budget)
}
