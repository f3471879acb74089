package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/jobs"
	"github.com/finledger/finledger/internal/store"
)

// occurrenceSuffix marks materialized copies of a recurring transaction.
const occurrenceSuffix = " (Recurring)"

// Worker materializes due recurring transactions. It is idempotent against
// late or duplicate work-item delivery: due-ness is re-derived from persisted
// state on every call, never trusted from the event.
type Worker struct {
	ledger store.Ledger
	log    zerolog.Logger
	now    func() time.Time
}

// NewWorker creates a recurrence worker.
func NewWorker(ledger store.Ledger, log zerolog.Logger) *Worker {
	return &Worker{
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// Handle adapts Process to the job queue's handler signature.
func (w *Worker) Handle(ctx context.Context, job jobs.Job) error {
	item, ok := job.(*jobs.ProcessRecurringJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}
	return w.Process(ctx, item.OwnerID, item.TransactionID)
}

// Process materializes one occurrence of the given recurring transaction if
// it is still due. A transaction that disappeared or is no longer due is a
// silent no-op.
func (w *Worker) Process(ctx context.Context, ownerID, transactionID uuid.UUID) error {
	txn, err := w.ledger.GetTransaction(ctx, ownerID, transactionID)
	if errors.Is(err, domain.ErrNotFound) {
		w.log.Debug().
			Str("transaction_id", transactionID.String()).
			Msg("Recurring transaction vanished since scan, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("process recurring: %w", err)
	}

	now := w.now()
	if !isDue(txn, now) {
		return nil
	}
	if txn.RecurringInterval == nil {
		return fmt.Errorf("process recurring: %w: transaction %s has no interval", domain.ErrValidation, txn.ID)
	}

	next, err := NextOccurrence(now, *txn.RecurringInterval)
	if err != nil {
		return fmt.Errorf("process recurring: %w", err)
	}

	occurrence := &domain.Transaction{
		UserID:      txn.UserID,
		AccountID:   txn.AccountID,
		Type:        txn.Type,
		Amount:      txn.Amount,
		Category:    txn.Category,
		Description: txn.Description + occurrenceSuffix,
		Date:        now,
		Status:      domain.StatusCompleted,
		IsRecurring: false,
	}

	if err := w.ledger.MaterializeOccurrence(ctx, txn, occurrence, now, next); err != nil {
		return fmt.Errorf("process recurring: %w", err)
	}

	w.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("occurrence_id", occurrence.ID.String()).
		Time("next_recurring_date", next).
		Msg("Materialized recurring transaction")
	return nil
}

// isDue reports whether the recurring transaction should be materialized:
// never processed, or its next date has passed.
func isDue(txn *domain.Transaction, now time.Time) bool {
	if !txn.IsRecurring {
		return false
	}
	if txn.LastProcessed == nil {
		return true
	}
	return txn.NextRecurringDate != nil && !txn.NextRecurringDate.After(now)
}

// Scanner finds due recurring transactions and emits one work item each onto
// the queue. Scans are idempotent and re-entrant: an interrupted scan simply
// runs again on the next tick.
type Scanner struct {
	ledger    store.Ledger
	publisher jobs.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewScanner creates a recurrence scanner.
func NewScanner(ledger store.Ledger, publisher jobs.Publisher, log zerolog.Logger) *Scanner {
	return &Scanner{
		ledger:    ledger,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Scan publishes a work item for every due recurring transaction and returns
// how many it emitted.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	due, err := s.ledger.ListDueRecurring(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("recurrence scan: %w", err)
	}

	published := 0
	for _, txn := range due {
		job := &jobs.ProcessRecurringJob{
			TransactionID: txn.ID,
			OwnerID:       txn.UserID,
		}
		if err := s.publisher.PublishProcessRecurring(ctx, job); err != nil {
			return published, fmt.Errorf("recurrence scan: publish %s: %w", txn.ID, err)
		}
		published++
	}

	s.log.Info().Int("due", len(due)).Int("published", published).Msg("Recurrence scan completed")
	return published, nil
}
