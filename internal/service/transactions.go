// Package service implements the application operations on top of the ledger:
// ownership checks, validation, rate limiting and balance-delta arithmetic.
// Handlers stay thin; everything a transport-agnostic caller needs lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/ratelimit"
	"github.com/finledger/finledger/internal/recurrence"
	"github.com/finledger/finledger/internal/store"
)

// createCost is the token cost of one transaction creation.
const createCost = 1

// TransactionService creates, updates and deletes ledger transactions while
// keeping account balances reconciled.
type TransactionService struct {
	ledger  store.Ledger
	limiter ratelimit.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// NewTransactionService creates a transaction service.
func NewTransactionService(ledger store.Ledger, limiter ratelimit.Limiter, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		ledger:  ledger,
		limiter: limiter,
		log:     log,
		now:     time.Now,
	}
}

// CreateTransactionInput carries the caller-supplied fields of a new
// transaction. Amount is a positive magnitude; the sign comes from Type.
type CreateTransactionInput struct {
	AccountID         uuid.UUID
	Type              domain.TransactionType
	Amount            decimal.Decimal
	Category          string
	Description       string
	Date              time.Time
	Status            domain.TransactionStatus
	IsRecurring       bool
	RecurringInterval *domain.RecurringInterval
}

// Create validates the input, charges the owner's rate-limit bucket, and
// writes the transaction together with its balance adjustment. The limiter is
// consulted before any ledger write: a denied request leaves no trace.
func (s *TransactionService) Create(ctx context.Context, ownerID uuid.UUID, in CreateTransactionInput) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		UserID:            ownerID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Category:          in.Category,
		Description:       in.Description,
		Date:              in.Date,
		Status:            in.Status,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
	}
	if txn.Status == "" {
		txn.Status = domain.StatusCompleted
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if allowed, retryAfter := s.limiter.Check(ownerID.String(), createCost); !allowed {
		s.log.Warn().
			Str("owner_id", ownerID.String()).
			Dur("retry_after", retryAfter).
			Msg("Transaction creation rate limited")
		return nil, &domain.RateLimitError{RetryAfter: retryAfter}
	}

	// Ownership check doubles as existence check for the target account.
	if _, err := s.ledger.GetAccount(ctx, ownerID, in.AccountID); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if txn.IsRecurring {
		next, err := recurrence.NextOccurrence(txn.Date, *txn.RecurringInterval)
		if err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
		txn.NextRecurringDate = &next
	}

	err := s.withConflictRetry(ctx, func() error {
		return s.ledger.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("account_id", txn.AccountID.String()).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.String()).
		Msg("Transaction created")
	return txn, nil
}

// UpdateTransactionInput carries the updatable fields of a transaction.
// AccountID must match the stored transaction: moving a transaction between
// accounts is rejected, delete and recreate instead.
type UpdateTransactionInput struct {
	AccountID         uuid.UUID
	Type              domain.TransactionType
	Amount            decimal.Decimal
	Category          string
	Description       string
	Date              time.Time
	Status            domain.TransactionStatus
	IsRecurring       bool
	RecurringInterval *domain.RecurringInterval
}

// Update replaces the transaction's fields and applies the net balance delta
// (new signed amount minus old signed amount) to its account in one atomic
// unit.
func (s *TransactionService) Update(ctx context.Context, ownerID, txnID uuid.UUID, in UpdateTransactionInput) (*domain.Transaction, error) {
	existing, err := s.ledger.GetTransaction(ctx, ownerID, txnID)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if in.AccountID != existing.AccountID {
		return nil, fmt.Errorf("%w: transactions cannot move between accounts", domain.ErrValidation)
	}

	oldSigned := existing.SignedAmount()

	updated := &domain.Transaction{
		ID:                existing.ID,
		UserID:            existing.UserID,
		AccountID:         existing.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Category:          in.Category,
		Description:       in.Description,
		Date:              in.Date,
		Status:            in.Status,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		LastProcessed:     existing.LastProcessed,
		CreatedAt:         existing.CreatedAt,
	}
	if updated.Status == "" {
		updated.Status = existing.Status
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if updated.IsRecurring {
		next, err := recurrence.NextOccurrence(updated.Date, *updated.RecurringInterval)
		if err != nil {
			return nil, fmt.Errorf("update transaction: %w", err)
		}
		updated.NextRecurringDate = &next
	} else {
		updated.NextRecurringDate = nil
		updated.LastProcessed = nil
	}

	delta := updated.SignedAmount().Sub(oldSigned)
	err = s.withConflictRetry(ctx, func() error {
		return s.ledger.UpdateTransaction(ctx, updated, delta)
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	s.log.Info().
		Str("transaction_id", updated.ID.String()).
		Str("balance_delta", delta.String()).
		Msg("Transaction updated")
	return updated, nil
}

// Delete removes the given transactions and reverses their balance effect,
// accumulating one net reversal per affected account so the whole batch
// commits or fails as a unit. Any id the owner does not hold fails the batch
// with ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	reversals := make(map[uuid.UUID]decimal.Decimal, 1)
	for _, id := range ids {
		txn, err := s.ledger.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		// Deleting undoes the original posting, so the reversal is the
		// negated signed amount.
		reversals[txn.AccountID] = reversals[txn.AccountID].Add(txn.SignedAmount().Neg())
	}

	err := s.withConflictRetry(ctx, func() error {
		return s.ledger.DeleteTransactions(ctx, ownerID, ids, reversals)
	})
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}

	s.log.Info().
		Str("owner_id", ownerID.String()).
		Int("count", len(ids)).
		Int("accounts", len(reversals)).
		Msg("Transactions deleted")
	return nil
}

// Get returns one transaction owned by the caller.
func (s *TransactionService) Get(ctx context.Context, ownerID, txnID uuid.UUID) (*domain.Transaction, error) {
	return s.ledger.GetTransaction(ctx, ownerID, txnID)
}

// List returns the caller's transactions, newest first, narrowed by filter.
func (s *TransactionService) List(ctx context.Context, ownerID uuid.UUID, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	return s.ledger.ListTransactions(ctx, ownerID, filter)
}

// withConflictRetry runs op and retries it once if the store reports a
// serialization conflict. Balance increments are SQL-side so a retry is
// always safe.
func (s *TransactionService) withConflictRetry(ctx context.Context, op func() error) error {
	err := op()
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}
	s.log.Warn().Err(err).Msg("Ledger write conflict, retrying once")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return op()
}
