package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/service"
	"github.com/finledger/finledger/internal/store"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	transactions *service.TransactionService
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions *service.TransactionService, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{transactions: transactions, log: log}
}

// transactionRequest is the JSON body for create and update.
type transactionRequest struct {
	AccountID         uuid.UUID       `json:"account_id"`
	Type              string          `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Category          string          `json:"category"`
	Description       string          `json:"description"`
	Date              time.Time       `json:"date"`
	Status            string          `json:"status"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurringInterval *string         `json:"recurring_interval,omitempty"`
}

func (req *transactionRequest) interval() *domain.RecurringInterval {
	if req.RecurringInterval == nil {
		return nil
	}
	i := domain.RecurringInterval(*req.RecurringInterval)
	return &i
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	filter := store.TransactionFilter{}
	filter.Limit, filter.Offset = pagination(r)

	query := r.URL.Query()
	if s := query.Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid account_id")
			return
		}
		filter.AccountID = &id
	}
	if s := query.Get("type"); s != "" {
		t := domain.TransactionType(s)
		if !t.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid type")
			return
		}
		filter.Type = &t
	}
	if s := query.Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		filter.From = &t
	}
	if s := query.Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		filter.To = &t
	}

	txns, err := h.transactions.List(r.Context(), ownerID, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteDomainError(w, err)
		return
	}

	if txns == nil {
		txns = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txns)
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txn, err := h.transactions.Create(r.Context(), ownerID, service.CreateTransactionInput{
		AccountID:         req.AccountID,
		Type:              domain.TransactionType(req.Type),
		Amount:            req.Amount,
		Category:          req.Category,
		Description:       req.Description,
		Date:              req.Date,
		Status:            domain.TransactionStatus(req.Status),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: req.interval(),
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, txn)
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request, txnID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(txnID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	txn, err := h.transactions.Get(r.Context(), ownerID, id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, txn)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, txnID string) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(txnID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txn, err := h.transactions.Update(r.Context(), ownerID, id, service.UpdateTransactionInput{
		AccountID:         req.AccountID,
		Type:              domain.TransactionType(req.Type),
		Amount:            req.Amount,
		Category:          req.Category,
		Description:       req.Description,
		Date:              req.Date,
		Status:            domain.TransactionStatus(req.Status),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: req.interval(),
	})
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, txn)
}

// Delete handles DELETE /api/transactions with a JSON body of ids, so one
// call can remove a whole selection atomically.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		middleware.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.transactions.Delete(r.Context(), ownerID, req.IDs); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": len(req.IDs),
	})
}
