package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/store/memory"
)

func TestComputeAggregates(t *testing.T) {
	txns := []*domain.Transaction{
		{Type: domain.Income, Amount: decimal.NewFromInt(3000), Category: "salary"},
		{Type: domain.Expense, Amount: decimal.NewFromInt(400), Category: "groceries"},
		{Type: domain.Expense, Amount: decimal.NewFromInt(100), Category: "groceries"},
		{Type: domain.Expense, Amount: decimal.NewFromInt(250), Category: "bills"},
	}

	stats := Compute(txns)
	if stats.Count != 4 {
		t.Errorf("count = %d, want 4", stats.Count)
	}
	if !stats.TotalIncome.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("total income = %s, want 3000", stats.TotalIncome)
	}
	if !stats.TotalExpense.Equal(decimal.NewFromInt(750)) {
		t.Errorf("total expense = %s, want 750", stats.TotalExpense)
	}
	if !stats.ByCategory["groceries"].Equal(decimal.NewFromInt(500)) {
		t.Errorf("groceries = %s, want 500", stats.ByCategory["groceries"])
	}
	if _, ok := stats.ByCategory["salary"]; ok {
		t.Error("income categories must not appear in the expense breakdown")
	}
}

func TestComputeEmpty(t *testing.T) {
	stats := Compute(nil)
	if stats.Count != 0 || !stats.TotalIncome.IsZero() || !stats.TotalExpense.IsZero() {
		t.Errorf("empty month should aggregate to zero, got %+v", stats)
	}
}

// recordingMailer collects sent mail.
type recordingMailer struct {
	sent []string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

// staticInsights returns fixed bullets or an error.
type staticInsights struct {
	lines []string
	err   error
	calls int
}

func (s *staticInsights) Insights(ctx context.Context, month time.Time, stats Stats) ([]string, error) {
	s.calls++
	return s.lines, s.err
}

func seedMonth(t *testing.T, ledger *memory.Ledger, when time.Time, txnCount int) *domain.User {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{SubjectID: "sub-" + uuid.NewString(), Email: uuid.NewString() + "@test.dev", Name: "Test"}
	if err := ledger.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	account := &domain.Account{UserID: user.ID, Name: "Main", Type: domain.AccountCurrent, Balance: decimal.Zero}
	if err := ledger.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	for i := 0; i < txnCount; i++ {
		txn := &domain.Transaction{
			UserID:    user.ID,
			AccountID: account.ID,
			Type:      domain.Expense,
			Amount:    decimal.NewFromInt(25),
			Category:  "groceries",
			Date:      when,
			Status:    domain.StatusCompleted,
		}
		if err := ledger.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	return user
}

func TestRunReportsPreviousMonth(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)
	lastMonth := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	active := seedMonth(t, ledger, lastMonth, 3)
	seedMonth(t, ledger, lastMonth.AddDate(0, -2, 0), 3) // only old activity
	seedMonth(t, ledger, lastMonth, 0)                   // no activity at all

	mailer := &recordingMailer{}
	insights := &staticInsights{lines: []string{"You spent mostly on groceries."}}
	reporter := NewReporter(ledger, mailer, insights, zerolog.Nop())
	reporter.now = func() time.Time { return now }

	if err := reporter.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d reports, want 1", len(mailer.sent))
	}
	if mailer.sent[0] != active.Email {
		t.Errorf("report went to %s, want %s", mailer.sent[0], active.Email)
	}
	if insights.calls != 1 {
		t.Errorf("insight generator called %d times, want 1", insights.calls)
	}
}

func TestRunFallsBackWhenInsightsFail(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)

	seedMonth(t, ledger, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), 2)

	mailer := &recordingMailer{}
	insights := &staticInsights{err: errors.New("model unavailable")}
	reporter := NewReporter(ledger, mailer, insights, zerolog.Nop())
	reporter.now = func() time.Time { return now }

	if err := reporter.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("insight failure must not block the report, sent %d", len(mailer.sent))
	}
}

func TestDefaultInsights(t *testing.T) {
	overspent := defaultInsights(Stats{
		TotalIncome:  decimal.NewFromInt(100),
		TotalExpense: decimal.NewFromInt(200),
		Count:        5,
	})
	if len(overspent) < 2 {
		t.Fatalf("expected at least 2 insights, got %d", len(overspent))
	}

	saved := defaultInsights(Stats{
		TotalIncome:  decimal.NewFromInt(200),
		TotalExpense: decimal.NewFromInt(100),
		Count:        5,
	})
	if len(saved) < 2 {
		t.Fatalf("expected at least 2 insights, got %d", len(saved))
	}
	if overspent[1] == saved[1] {
		t.Error("overspending and saving should produce different advice")
	}
}
