package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/store"
)

// AccountService manages ledger accounts.
type AccountService struct {
	ledger store.Ledger
	log    zerolog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(ledger store.Ledger, log zerolog.Logger) *AccountService {
	return &AccountService{ledger: ledger, log: log}
}

// CreateAccountInput carries the caller-supplied fields of a new account.
// Balance is the opening balance and may be negative.
type CreateAccountInput struct {
	Name      string
	Type      domain.AccountType
	Balance   decimal.Decimal
	IsDefault bool
}

// Create validates and writes a new account. The first account an owner
// creates becomes the default regardless of the flag.
func (s *AccountService) Create(ctx context.Context, ownerID uuid.UUID, in CreateAccountInput) (*domain.Account, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrValidation)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrValidation, in.Type)
	}

	account := &domain.Account{
		UserID:    ownerID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   in.Balance,
		IsDefault: in.IsDefault,
	}
	if err := s.ledger.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("owner_id", ownerID.String()).
		Bool("is_default", account.IsDefault).
		Msg("Account created")
	return account, nil
}

// AccountWithStats is an account plus its transaction count.
type AccountWithStats struct {
	*domain.Account
	TransactionCount int64 `json:"transaction_count"`
}

// List returns the owner's accounts with per-account transaction counts.
func (s *AccountService) List(ctx context.Context, ownerID uuid.UUID) ([]*AccountWithStats, error) {
	accounts, err := s.ledger.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]*AccountWithStats, 0, len(accounts))
	for _, a := range accounts {
		count, err := s.ledger.CountTransactions(ctx, ownerID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, &AccountWithStats{Account: a, TransactionCount: count})
	}
	return out, nil
}

// AccountDetail is an account plus a page of its transactions.
type AccountDetail struct {
	*domain.Account
	Transactions []*domain.Transaction `json:"transactions"`
}

// Get returns one account with its transactions, newest first.
func (s *AccountService) Get(ctx context.Context, ownerID, accountID uuid.UUID, limit, offset int) (*AccountDetail, error) {
	account, err := s.ledger.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	txns, err := s.ledger.ListTransactions(ctx, ownerID, store.TransactionFilter{
		AccountID: &accountID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &AccountDetail{Account: account, Transactions: txns}, nil
}

// SetDefault flips the owner's default account to accountID. Exactly one
// account is default afterwards.
func (s *AccountService) SetDefault(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Account, error) {
	if err := s.ledger.SetDefaultAccount(ctx, ownerID, accountID); err != nil {
		return nil, fmt.Errorf("set default account: %w", err)
	}
	account, err := s.ledger.GetAccount(ctx, ownerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("set default account: %w", err)
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("owner_id", ownerID.String()).
		Msg("Default account changed")
	return account, nil
}
