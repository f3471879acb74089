package recurrence

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/jobs"
	"github.com/finledger/finledger/internal/store"
	"github.com/finledger/finledger/internal/store/memory"
)

func seedRecurring(t *testing.T, ledger *memory.Ledger, interval domain.RecurringInterval, lastProcessed, nextDate *time.Time) (*domain.User, *domain.Account, *domain.Transaction) {
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
	txn := &domain.Transaction{
		UserID:            user.ID,
		AccountID:         account.ID,
		Type:              domain.Expense,
		Amount:            decimal.NewFromInt(50),
		Category:          "bills",
		Description:       "Internet",
		Date:              time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:            domain.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: &interval,
		LastProcessed:     lastProcessed,
		NextRecurringDate: nextDate,
	}
	if err := ledger.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return user, account, txn
}

func newTestWorker(ledger store.Ledger, now time.Time) *Worker {
	w := NewWorker(ledger, zerolog.Nop())
	w.now = func() time.Time { return now }
	return w
}

func TestProcessMaterializesDueTransaction(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	user, account, template := seedRecurring(t, ledger, domain.Monthly, nil, nil)
	worker := newTestWorker(ledger, now)

	if err := worker.Process(ctx, user.ID, template.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	txns, err := ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected template + occurrence, got %d transactions", len(txns))
	}

	var occurrence *domain.Transaction
	for _, txn := range txns {
		if txn.ID != template.ID {
			occurrence = txn
		}
	}
	if occurrence == nil {
		t.Fatal("occurrence not found")
	}
	if occurrence.IsRecurring {
		t.Error("occurrence must not itself be recurring")
	}
	if !strings.HasSuffix(occurrence.Description, " (Recurring)") {
		t.Errorf("occurrence description %q missing suffix", occurrence.Description)
	}
	if !occurrence.Amount.Equal(template.Amount) {
		t.Errorf("occurrence amount = %s, want %s", occurrence.Amount, template.Amount)
	}

	updated, err := ledger.GetTransaction(ctx, user.ID, template.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if updated.LastProcessed == nil || !updated.LastProcessed.Equal(now) {
		t.Errorf("template lastProcessed = %v, want %s", updated.LastProcessed, now)
	}
	wantNext := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if updated.NextRecurringDate == nil || !updated.NextRecurringDate.Equal(wantNext) {
		t.Errorf("template nextRecurringDate = %v, want %s", updated.NextRecurringDate, wantNext)
	}

	// balance: template expense -50 plus occurrence expense -50
	acc, err := ledger.GetAccount(ctx, user.ID, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("account balance = %s, want -100", acc.Balance)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	user, _, template := seedRecurring(t, ledger, domain.Monthly, nil, nil)
	worker := newTestWorker(ledger, now)

	// duplicate delivery of the same work item
	if err := worker.Process(ctx, user.ID, template.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := worker.Process(ctx, user.ID, template.ID); err != nil {
		t.Fatalf("second process: %v", err)
	}

	txns, err := ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("duplicate delivery created extra occurrences: got %d transactions, want 2", len(txns))
	}
}

func TestProcessSkipsNotDue(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	processed := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	next := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	user, _, template := seedRecurring(t, ledger, domain.Monthly, &processed, &next)
	worker := newTestWorker(ledger, now)

	if err := worker.Process(ctx, user.ID, template.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	txns, err := ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("not-due template must be a no-op, got %d transactions", len(txns))
	}
}

func TestProcessVanishedTransactionIsNoop(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	worker := newTestWorker(ledger, time.Now())

	if err := worker.Process(ctx, uuid.New(), uuid.New()); err != nil {
		t.Fatalf("vanished transaction should not error: %v", err)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		txn  *domain.Transaction
		want bool
	}{
		{"non-recurring", &domain.Transaction{IsRecurring: false}, false},
		{"never processed", &domain.Transaction{IsRecurring: true}, true},
		{"next date passed", &domain.Transaction{IsRecurring: true, LastProcessed: &past, NextRecurringDate: &past}, true},
		{"next date exactly now", &domain.Transaction{IsRecurring: true, LastProcessed: &past, NextRecurringDate: &now}, true},
		{"next date in future", &domain.Transaction{IsRecurring: true, LastProcessed: &past, NextRecurringDate: &future}, false},
		{"processed, no next date", &domain.Transaction{IsRecurring: true, LastProcessed: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDue(tt.txn, now); got != tt.want {
				t.Errorf("isDue = %v, want %v", got, tt.want)
			}
		})
	}
}

// recordingPublisher collects published work items.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*jobs.ProcessRecurringJob
}

func (p *recordingPublisher) PublishProcessRecurring(ctx context.Context, job *jobs.ProcessRecurringJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestScanPublishesDueTransactions(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	// due: never processed
	userA, _, dueTxn := seedRecurring(t, ledger, domain.Monthly, nil, nil)
	// not due: next date in the future
	seedRecurring(t, ledger, domain.Monthly, &past, &future)

	pub := &recordingPublisher{}
	scanner := NewScanner(ledger, pub, zerolog.Nop())
	scanner.now = func() time.Time { return now }

	published, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if published != 1 {
		t.Fatalf("published = %d, want 1", published)
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("recorded %d jobs, want 1", len(pub.jobs))
	}
	if pub.jobs[0].TransactionID != dueTxn.ID || pub.jobs[0].OwnerID != userA.ID {
		t.Errorf("published wrong work item: %+v", pub.jobs[0])
	}
}
