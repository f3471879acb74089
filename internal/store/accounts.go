package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finledger/finledger/internal/domain"
)

// CreateAccount inserts an account. The owner's first account always becomes
// the default; when the new account is flagged default, other defaults are
// unset in the same atomic unit so at most one default exists per owner.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&domain.Account{}).
			Where("user_id = ?", account.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			account.IsDefault = true
		}
		if account.IsDefault {
			if err := tx.Model(&domain.Account{}).
				Where("user_id = ? AND is_default", account.UserID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return fmt.Errorf("create account: %w", translateError(err))
	}
	return nil
}

// GetAccount fetches an account scoped to its owner.
func (s *Store) GetAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		First(&account, "id = ? AND user_id = ?", accountID, ownerID).Error
	if err != nil {
		return nil, fmt.Errorf("get account: %w", translateError(err))
	}
	return &account, nil
}

// ListAccounts returns the owner's accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", translateError(err))
	}
	return accounts, nil
}

// SetDefaultAccount flips the default flag to the given account, unsetting
// any other default of the same owner in one atomic unit.
func (s *Store) SetDefaultAccount(ctx context.Context, ownerID, accountID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Account{}).
			Where("user_id = ? AND is_default", ownerID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND user_id = ?", accountID, ownerID).
			Update("is_default", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set default account: %w", translateError(err))
	}
	return nil
}

// CountTransactions returns the number of transactions on an account.
func (s *Store) CountTransactions(ctx context.Context, ownerID, accountID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("user_id = ? AND account_id = ?", ownerID, accountID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", translateError(err))
	}
	return n, nil
}
