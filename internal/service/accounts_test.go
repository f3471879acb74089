package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/store/memory"
)

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	user, _ := seedOwner(t, ledger)
	svc := NewAccountService(ledger, zerolog.Nop())

	if _, err := svc.Create(ctx, user.ID, CreateAccountInput{Type: domain.AccountCurrent}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing name: got %v, want validation error", err)
	}
	if _, err := svc.Create(ctx, user.ID, CreateAccountInput{Name: "X", Type: "CHECKING"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown type: got %v, want validation error", err)
	}
}

func TestFirstAccountBecomesDefault(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	svc := NewAccountService(ledger, zerolog.Nop())

	user := &domain.User{SubjectID: "sub-default", Email: "default@test.dev", Name: "Test"}
	if err := ledger.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	first, err := svc.Create(ctx, user.ID, CreateAccountInput{Name: "First", Type: domain.AccountCurrent})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsDefault {
		t.Error("first account should become default even without the flag")
	}

	second, err := svc.Create(ctx, user.ID, CreateAccountInput{Name: "Second", Type: domain.AccountSavings})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.IsDefault {
		t.Error("second account should not steal the default")
	}
}

func TestSetDefaultIsExclusive(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	user, first := seedOwner(t, ledger)
	svc := NewAccountService(ledger, zerolog.Nop())

	second, err := svc.Create(ctx, user.ID, CreateAccountInput{Name: "Savings", Type: domain.AccountSavings})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	promoted, err := svc.SetDefault(ctx, user.ID, second.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !promoted.IsDefault {
		t.Error("promoted account should be default")
	}

	accounts, err := svc.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly one default account, got %d", defaults)
	}

	demoted, err := ledger.GetAccount(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if demoted.IsDefault {
		t.Error("previous default should have been demoted")
	}
}

func TestListIncludesTransactionCounts(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	user, account := seedOwner(t, ledger)
	svc := NewAccountService(ledger, zerolog.Nop())

	txns := NewTransactionService(ledger, allowAll{}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if _, err := txns.Create(ctx, user.ID, createInput(account.ID, domain.Expense, 10)); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	accounts, err := svc.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts[0].TransactionCount != 3 {
		t.Errorf("transaction count = %d, want 3", accounts[0].TransactionCount)
	}
}

func TestGetReturnsTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	user, account := seedOwner(t, ledger)
	svc := NewAccountService(ledger, zerolog.Nop())

	txns := NewTransactionService(ledger, allowAll{}, zerolog.Nop())
	older := createInput(account.ID, domain.Expense, 10)
	newer := createInput(account.ID, domain.Expense, 20)
	newer.Date = newer.Date.AddDate(0, 0, 5)
	if _, err := txns.Create(ctx, user.ID, older); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := txns.Create(ctx, user.ID, newer); err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := svc.Get(ctx, user.ID, account.ID, 50, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(detail.Transactions))
	}
	if !detail.Transactions[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("first page entry should be the newest transaction, got amount %s", detail.Transactions[0].Amount)
	}
}
