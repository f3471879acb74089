package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finledger/finledger/internal/domain"
)

// CreateTransaction inserts the transaction row and applies its signed amount
// to the owning account's balance in one atomic unit. The increment runs on
// the SQL side so concurrent creates on the same account are never lost.
func (s *Store) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return incrementBalance(tx, txn.UserID, txn.AccountID, txn.SignedAmount())
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", translateError(err))
	}
	return nil
}

// GetTransaction fetches a transaction scoped to its owner.
func (s *Store) GetTransaction(ctx context.Context, ownerID, txnID uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := s.db.WithContext(ctx).
		First(&txn, "id = ? AND user_id = ?", txnID, ownerID).Error
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", translateError(err))
	}
	return &txn, nil
}

// ListTransactions returns the owner's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) ([]*domain.Transaction, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if filter.AccountID != nil {
		q = q.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var txns []*domain.Transaction
	if err := q.Order("date DESC").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", translateError(err))
	}
	return txns, nil
}

// UpdateTransaction persists the transaction row and adjusts the account
// balance by balanceDelta in one atomic unit. The delta is computed by the
// caller as new signed amount minus old signed amount; the stored balance is
// never re-derived from the full row set.
func (s *Store) UpdateTransaction(ctx context.Context, txn *domain.Transaction, balanceDelta decimal.Decimal) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND user_id = ?", txn.ID, txn.UserID).
			Select("*").
			Omit("id", "user_id", "created_at").
			Updates(txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if balanceDelta.IsZero() {
			return nil
		}
		return incrementBalance(tx, txn.UserID, txn.AccountID, balanceDelta)
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", translateError(err))
	}
	return nil
}

// DeleteTransactions removes the rows and applies one accumulated reversal
// per affected account, all in one atomic unit. One update per account, not
// per transaction, avoids lost updates when many rows of the same account are
// deleted together.
func (s *Store) DeleteTransactions(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, reversals map[uuid.UUID]decimal.Decimal) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("id IN ? AND user_id = ?", ids, ownerID).
			Delete(&domain.Transaction{}).Error; err != nil {
			return err
		}
		for accountID, delta := range reversals {
			if err := incrementBalance(tx, ownerID, accountID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transactions: %w", translateError(err))
	}
	return nil
}

// SumExpenses returns the sum of EXPENSE amounts on an account within
// [from, to], aggregated on the database side.
func (s *Store) SumExpenses(ctx context.Context, ownerID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("user_id = ? AND account_id = ? AND type = ? AND date >= ? AND date <= ?",
			ownerID, accountID, domain.Expense, from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", translateError(err))
	}
	return total, nil
}

// ListDueRecurring returns COMPLETED recurring transactions that were never
// processed or whose next recurring date has passed.
func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := s.db.WithContext(ctx).
		Where("is_recurring AND status = ?", domain.StatusCompleted).
		Where("last_processed IS NULL OR next_recurring_date <= ?", now).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("list due recurring: %w", translateError(err))
	}
	return txns, nil
}

// MaterializeOccurrence inserts the occurrence row, applies its signed amount
// to the account balance, and advances the recurring template, atomically.
func (s *Store) MaterializeOccurrence(ctx context.Context, template, occurrence *domain.Transaction, processedAt, nextDate time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(occurrence).Error; err != nil {
			return err
		}
		if err := incrementBalance(tx, occurrence.UserID, occurrence.AccountID, occurrence.SignedAmount()); err != nil {
			return err
		}
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND user_id = ?", template.ID, template.UserID).
			Updates(map[string]interface{}{
				"last_processed":      processedAt,
				"next_recurring_date": nextDate,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("materialize occurrence: %w", translateError(err))
	}
	return nil
}

// incrementBalance applies delta to the account balance with a SQL-side
// increment scoped to the owner. Zero rows affected means the account is
// absent or not owned, which must abort the surrounding unit.
func incrementBalance(tx *gorm.DB, ownerID, accountID uuid.UUID, delta decimal.Decimal) error {
	res := tx.Model(&domain.Account{}).
		Where("id = ? AND user_id = ?", accountID, ownerID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
