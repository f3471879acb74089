package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/budget"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/store"
)

// BudgetService reads and writes the single monthly budget of a user.
type BudgetService struct {
	ledger store.Ledger
	log    zerolog.Logger
	now    func() time.Time
}

// NewBudgetService creates a budget service.
func NewBudgetService(ledger store.Ledger, log zerolog.Logger) *BudgetService {
	return &BudgetService{ledger: ledger, log: log, now: time.Now}
}

// BudgetStatus is the owner's budget with current-month spending on the
// default account. Budget is nil when none has been set.
type BudgetStatus struct {
	Budget          *domain.Budget  `json:"budget,omitempty"`
	CurrentExpenses decimal.Decimal `json:"current_expenses"`
}

// GetCurrent returns the budget and the default account's expenses for the
// current calendar month. An owner without a default account gets zero
// expenses.
func (s *BudgetService) GetCurrent(ctx context.Context, ownerID uuid.UUID) (*BudgetStatus, error) {
	status := &BudgetStatus{CurrentExpenses: decimal.Zero}

	b, err := s.ledger.GetBudget(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// no budget set yet
	case err != nil:
		return nil, fmt.Errorf("get budget: %w", err)
	default:
		status.Budget = b
	}

	accounts, err := s.ledger.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	for _, a := range accounts {
		if !a.IsDefault {
			continue
		}
		from, to := budget.MonthWindow(s.now())
		expenses, err := s.ledger.SumExpenses(ctx, ownerID, a.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("get budget: %w", err)
		}
		status.CurrentExpenses = expenses
		break
	}
	return status, nil
}

// Update sets the owner's monthly budget amount, creating the budget row on
// first use.
func (s *BudgetService) Update(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*domain.Budget, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: budget amount must be positive, got %s", domain.ErrValidation, amount)
	}

	b, err := s.ledger.UpsertBudget(ctx, ownerID, amount)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}

	s.log.Info().
		Str("owner_id", ownerID.String()).
		Str("amount", amount.String()).
		Msg("Budget updated")
	return b, nil
}
