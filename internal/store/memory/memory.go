// Package memory provides an in-memory implementation of store.Ledger.
// It is safe for concurrent use and mirrors the atomicity contract of the
// Postgres store with a single mutex: every mutating method either applies
// all of its writes or none. It backs unit tests and single-process demos;
// data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/store"
)

// Ledger is the in-memory store.Ledger.
type Ledger struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*domain.User
	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	budgets      map[uuid.UUID]*domain.Budget
}

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{
		users:        make(map[uuid.UUID]*domain.User),
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		budgets:      make(map[uuid.UUID]*domain.Budget),
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// CreateUser implements store.Ledger.
func (l *Ledger) CreateUser(ctx context.Context, user *domain.User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ensureID(&user.ID)
	for _, u := range l.users {
		if u.SubjectID == user.SubjectID || u.Email == user.Email {
			return fmt.Errorf("create user: %w", domain.ErrConflict)
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	l.users[user.ID] = &cp
	return nil
}

// GetUser implements store.Ledger.
func (l *Ledger) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetUserBySubject implements store.Ledger.
func (l *Ledger) GetUserBySubject(ctx context.Context, subjectID string) (*domain.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, u := range l.users {
		if u.SubjectID == subjectID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user by subject: %w", domain.ErrNotFound)
}

// ListUsers implements store.Ledger.
func (l *Ledger) ListUsers(ctx context.Context) ([]*domain.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.User, 0, len(l.users))
	for _, u := range l.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateAccount implements store.Ledger.
func (l *Ledger) CreateAccount(ctx context.Context, account *domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ensureID(&account.ID)
	first := true
	for _, a := range l.accounts {
		if a.UserID == account.UserID {
			first = false
			break
		}
	}
	if first {
		account.IsDefault = true
	}
	if account.IsDefault {
		for _, a := range l.accounts {
			if a.UserID == account.UserID {
				a.IsDefault = false
			}
		}
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	cp := *account
	l.accounts[account.ID] = &cp
	return nil
}

// GetAccount implements store.Ledger.
func (l *Ledger) GetAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getAccountLocked(ownerID, accountID)
}

func (l *Ledger) getAccountLocked(ownerID, accountID uuid.UUID) (*domain.Account, error) {
	a, ok := l.accounts[accountID]
	if !ok || a.UserID != ownerID {
		return nil, fmt.Errorf("get account: %w", domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// ListAccounts implements store.Ledger.
func (l *Ledger) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*domain.Account
	for _, a := range l.accounts {
		if a.UserID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SetDefaultAccount implements store.Ledger.
func (l *Ledger) SetDefaultAccount(ctx context.Context, ownerID, accountID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	target, ok := l.accounts[accountID]
	if !ok || target.UserID != ownerID {
		return fmt.Errorf("set default account: %w", domain.ErrNotFound)
	}
	for _, a := range l.accounts {
		if a.UserID == ownerID {
			a.IsDefault = false
		}
	}
	target.IsDefault = true
	target.UpdatedAt = time.Now()
	return nil
}

// CountTransactions implements store.Ledger.
func (l *Ledger) CountTransactions(ctx context.Context, ownerID, accountID uuid.UUID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var n int64
	for _, t := range l.transactions {
		if t.UserID == ownerID && t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// CreateTransaction implements store.Ledger.
func (l *Ledger) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[txn.AccountID]
	if !ok || account.UserID != txn.UserID {
		return fmt.Errorf("create transaction: %w", domain.ErrNotFound)
	}
	ensureID(&txn.ID)
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	cp := *txn
	l.transactions[txn.ID] = &cp
	account.Balance = account.Balance.Add(txn.SignedAmount())
	return nil
}

// GetTransaction implements store.Ledger.
func (l *Ledger) GetTransaction(ctx context.Context, ownerID, txnID uuid.UUID) (*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.transactions[txnID]
	if !ok || t.UserID != ownerID {
		return nil, fmt.Errorf("get transaction: %w", domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// ListTransactions implements store.Ledger.
func (l *Ledger) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range l.transactions {
		if t.UserID != ownerID {
			continue
		}
		if filter.AccountID != nil && t.AccountID != *filter.AccountID {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Date.After(*filter.To) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateTransaction implements store.Ledger.
func (l *Ledger) UpdateTransaction(ctx context.Context, txn *domain.Transaction, balanceDelta decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.transactions[txn.ID]
	if !ok || existing.UserID != txn.UserID {
		return fmt.Errorf("update transaction: %w", domain.ErrNotFound)
	}
	account, ok := l.accounts[txn.AccountID]
	if !ok || account.UserID != txn.UserID {
		return fmt.Errorf("update transaction: %w", domain.ErrNotFound)
	}
	txn.CreatedAt = existing.CreatedAt
	txn.UpdatedAt = time.Now()
	cp := *txn
	l.transactions[txn.ID] = &cp
	account.Balance = account.Balance.Add(balanceDelta)
	return nil
}

// DeleteTransactions implements store.Ledger.
func (l *Ledger) DeleteTransactions(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, reversals map[uuid.UUID]decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Verify every reversal target exists before touching anything, so a
	// partial failure leaves all accounts unchanged.
	for accountID := range reversals {
		a, ok := l.accounts[accountID]
		if !ok || a.UserID != ownerID {
			return fmt.Errorf("delete transactions: %w", domain.ErrNotFound)
		}
	}
	for _, id := range ids {
		if t, ok := l.transactions[id]; ok && t.UserID == ownerID {
			delete(l.transactions, id)
		}
	}
	for accountID, delta := range reversals {
		a := l.accounts[accountID]
		a.Balance = a.Balance.Add(delta)
	}
	return nil
}

// SumExpenses implements store.Ledger.
func (l *Ledger) SumExpenses(ctx context.Context, ownerID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, t := range l.transactions {
		if t.UserID != ownerID || t.AccountID != accountID || t.Type != domain.Expense {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

// ListDueRecurring implements store.Ledger.
func (l *Ledger) ListDueRecurring(ctx context.Context, now time.Time) ([]*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range l.transactions {
		if !t.IsRecurring || t.Status != domain.StatusCompleted {
			continue
		}
		if t.LastProcessed == nil || (t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MaterializeOccurrence implements store.Ledger.
func (l *Ledger) MaterializeOccurrence(ctx context.Context, template, occurrence *domain.Transaction, processedAt, nextDate time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, ok := l.transactions[template.ID]
	if !ok || stored.UserID != template.UserID {
		return fmt.Errorf("materialize occurrence: %w", domain.ErrNotFound)
	}
	account, ok := l.accounts[occurrence.AccountID]
	if !ok || account.UserID != occurrence.UserID {
		return fmt.Errorf("materialize occurrence: %w", domain.ErrNotFound)
	}

	ensureID(&occurrence.ID)
	occurrence.CreatedAt = time.Now()
	occurrence.UpdatedAt = occurrence.CreatedAt
	cp := *occurrence
	l.transactions[occurrence.ID] = &cp

	account.Balance = account.Balance.Add(occurrence.SignedAmount())

	p := processedAt
	n := nextDate
	stored.LastProcessed = &p
	stored.NextRecurringDate = &n
	stored.UpdatedAt = time.Now()
	return nil
}

// GetBudget implements store.Ledger.
func (l *Ledger) GetBudget(ctx context.Context, ownerID uuid.UUID) (*domain.Budget, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.budgets {
		if b.UserID == ownerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get budget: %w", domain.ErrNotFound)
}

// UpsertBudget implements store.Ledger.
func (l *Ledger) UpsertBudget(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*domain.Budget, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range l.budgets {
		if b.UserID == ownerID {
			b.Amount = amount
			b.UpdatedAt = time.Now()
			cp := *b
			return &cp, nil
		}
	}
	budget := &domain.Budget{
		ID:        uuid.New(),
		UserID:    ownerID,
		Amount:    amount,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	l.budgets[budget.ID] = budget
	cp := *budget
	return &cp, nil
}

// ListBudgetsWithDefaultAccount implements store.Ledger.
func (l *Ledger) ListBudgetsWithDefaultAccount(ctx context.Context) ([]*store.BudgetWithAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*store.BudgetWithAccount
	for _, b := range l.budgets {
		bcp := *b
		entry := &store.BudgetWithAccount{Budget: &bcp}
		if u, ok := l.users[b.UserID]; ok {
			ucp := *u
			entry.User = &ucp
		}
		for _, a := range l.accounts {
			if a.UserID == b.UserID && a.IsDefault {
				acp := *a
				entry.DefaultAccount = &acp
				break
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Budget.CreatedAt.Before(out[j].Budget.CreatedAt)
	})
	return out, nil
}

// SetLastAlertSent implements store.Ledger.
func (l *Ledger) SetLastAlertSent(ctx context.Context, budgetID uuid.UUID, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[budgetID]
	if !ok {
		return fmt.Errorf("set last alert sent: %w", domain.ErrNotFound)
	}
	t := at
	b.LastAlertSent = &t
	b.UpdatedAt = time.Now()
	return nil
}

var _ store.Ledger = (*Ledger)(nil)
