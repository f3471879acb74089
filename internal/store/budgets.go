package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finledger/finledger/internal/domain"
)

// GetBudget fetches the owner's budget row.
func (s *Store) GetBudget(ctx context.Context, ownerID uuid.UUID) (*domain.Budget, error) {
	var budget domain.Budget
	err := s.db.WithContext(ctx).First(&budget, "user_id = ?", ownerID).Error
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", translateError(err))
	}
	return &budget, nil
}

// UpsertBudget creates or overwrites the owner's single budget row, keyed by
// the unique user_id index.
func (s *Store) UpsertBudget(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*domain.Budget, error) {
	budget := &domain.Budget{UserID: ownerID, Amount: amount}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).
		Create(budget).Error
	if err != nil {
		return nil, fmt.Errorf("upsert budget: %w", translateError(err))
	}
	return s.GetBudget(ctx, ownerID)
}

// ListBudgetsWithDefaultAccount returns every budget joined to its owner and
// the owner's default account. Owners without a default account are still
// returned, with a nil account, so the evaluator can skip them explicitly.
func (s *Store) ListBudgetsWithDefaultAccount(ctx context.Context) ([]*BudgetWithAccount, error) {
	var budgets []*domain.Budget
	if err := s.db.WithContext(ctx).Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("list budgets: %w", translateError(err))
	}

	out := make([]*BudgetWithAccount, 0, len(budgets))
	for _, b := range budgets {
		user, err := s.GetUser(ctx, b.UserID)
		if err != nil {
			return nil, fmt.Errorf("list budgets: owner %s: %w", b.UserID, err)
		}
		entry := &BudgetWithAccount{Budget: b, User: user}

		var account domain.Account
		err = s.db.WithContext(ctx).
			First(&account, "user_id = ? AND is_default", b.UserID).Error
		switch {
		case err == nil:
			entry.DefaultAccount = &account
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no default account, evaluator skips
		default:
			return nil, fmt.Errorf("list budgets: default account: %w", translateError(err))
		}
		out = append(out, entry)
	}
	return out, nil
}

// SetLastAlertSent records the moment the monthly alert fired.
func (s *Store) SetLastAlertSent(ctx context.Context, budgetID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&domain.Budget{}).
		Where("id = ?", budgetID).
		Update("last_alert_sent", at)
	if res.Error != nil {
		return fmt.Errorf("set last alert sent: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set last alert sent: %w", domain.ErrNotFound)
	}
	return nil
}
