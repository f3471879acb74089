package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() *Transaction {
	return &Transaction{
		Type:     Expense,
		Amount:   decimal.NewFromInt(100),
		Category: "groceries",
		Date:     time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:   StatusCompleted,
	}
}

func TestTransactionValidate(t *testing.T) {
	monthly := Monthly
	bogus := RecurringInterval("FORTNIGHTLY")

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{"valid expense", func(txn *Transaction) {}, false},
		{"valid income", func(txn *Transaction) { txn.Type = Income }, false},
		{"valid recurring", func(txn *Transaction) {
			txn.IsRecurring = true
			txn.RecurringInterval = &monthly
		}, false},
		{"unknown type", func(txn *Transaction) { txn.Type = "TRANSFER" }, true},
		{"zero amount", func(txn *Transaction) { txn.Amount = decimal.Zero }, true},
		{"negative amount", func(txn *Transaction) { txn.Amount = decimal.NewFromInt(-5) }, true},
		{"missing category", func(txn *Transaction) { txn.Category = "" }, true},
		{"zero date", func(txn *Transaction) { txn.Date = time.Time{} }, true},
		{"recurring without interval", func(txn *Transaction) { txn.IsRecurring = true }, true},
		{"recurring with bogus interval", func(txn *Transaction) {
			txn.IsRecurring = true
			txn.RecurringInterval = &bogus
		}, true},
		{"interval on non-recurring", func(txn *Transaction) { txn.RecurringInterval = &monthly }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTransaction()
			tt.mutate(txn)
			err := txn.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("error should wrap ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSignedAmount(t *testing.T) {
	expense := &Transaction{Type: Expense, Amount: decimal.NewFromInt(75)}
	if got := expense.SignedAmount(); !got.Equal(decimal.NewFromInt(-75)) {
		t.Errorf("expense signed amount = %s, want -75", got)
	}

	income := &Transaction{Type: Income, Amount: decimal.NewFromInt(75)}
	if got := income.SignedAmount(); !got.Equal(decimal.NewFromInt(75)) {
		t.Errorf("income signed amount = %s, want 75", got)
	}
}

func TestRateLimitErrorIs(t *testing.T) {
	err := &RateLimitError{RetryAfter: 30 * time.Second}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("RateLimitError should match ErrRateLimited")
	}
}

func TestEnumValidity(t *testing.T) {
	if !AccountCurrent.Valid() || !AccountSavings.Valid() {
		t.Error("known account types should be valid")
	}
	if AccountType("CHECKING").Valid() {
		t.Error("unknown account type should be invalid")
	}
	for _, i := range []RecurringInterval{Daily, Weekly, Monthly, Yearly} {
		if !i.Valid() {
			t.Errorf("interval %s should be valid", i)
		}
	}
	if RecurringInterval("HOURLY").Valid() {
		t.Error("unknown interval should be invalid")
	}
}
