// Package handlers holds the HTTP handlers for the API server. Handlers
// decode and authorize the request, delegate to the service layer and map
// domain errors onto status codes.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/service"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
	log      zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(accounts *service.AccountService, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, log: log}
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	accounts, err := h.accounts.List(r.Context(), ownerID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req struct {
		Name      string          `json:"name"`
		Type      string          `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		IsDefault bool            `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accounts.Create(r.Context(), ownerID, service.CreateAccountInput{
		Name:      req.Name,
		Type:      domain.AccountType(req.Type),
		Balance:   req.Balance,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, account)
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request, accountID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	limit, offset := pagination(r)
	detail, err := h.accounts.Get(r.Context(), ownerID, id, limit, offset)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, detail)
}

// SetDefault handles PUT /api/accounts/{id}/default
func (h *AccountsHandler) SetDefault(w http.ResponseWriter, r *http.Request, accountID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	account, err := h.accounts.SetDefault(r.Context(), ownerID, id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, account)
}

// pagination reads limit/offset query parameters with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
