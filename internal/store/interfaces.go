package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
)

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	AccountID *uuid.UUID
	Type      *domain.TransactionType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// BudgetWithAccount joins a budget to its owner and the owner's default
// account. DefaultAccount is nil when the owner has none; the budget
// evaluator skips those.
type BudgetWithAccount struct {
	Budget         *domain.Budget
	User           *domain.User
	DefaultAccount *domain.Account
}

// Ledger is the durable record of users, accounts, transactions and budgets.
//
// Every mutation that changes a transaction's amount, type or existence
// applies the equal-and-opposite balance delta to exactly one account row in
// the same atomic unit. Implementations must guarantee that no partial state
// is observable if the unit cannot commit, and that concurrent balance
// adjustments on the same account are never lost (SQL-side increments, not
// read-modify-write).
type Ledger interface {
	// Users.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserBySubject(ctx context.Context, subjectID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// Accounts. CreateAccount makes the first account of an owner the
	// default, and atomically unsets other defaults when the new account is
	// flagged default.
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*domain.Account, error)
	SetDefaultAccount(ctx context.Context, ownerID, accountID uuid.UUID) error
	CountTransactions(ctx context.Context, ownerID, accountID uuid.UUID) (int64, error)

	// Transactions.
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	GetTransaction(ctx context.Context, ownerID, txnID uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, filter TransactionFilter) ([]*domain.Transaction, error)
	// UpdateTransaction persists txn and adjusts its account balance by
	// balanceDelta (new signed amount minus old signed amount) in one unit.
	UpdateTransaction(ctx context.Context, txn *domain.Transaction, balanceDelta decimal.Decimal) error
	// DeleteTransactions removes the rows and applies one accumulated
	// reversal per affected account, all in one unit.
	DeleteTransactions(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, reversals map[uuid.UUID]decimal.Decimal) error
	SumExpenses(ctx context.Context, ownerID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error)

	// Recurrence. ListDueRecurring returns COMPLETED recurring transactions
	// that were never processed or whose next date has passed.
	ListDueRecurring(ctx context.Context, now time.Time) ([]*domain.Transaction, error)
	// MaterializeOccurrence inserts the occurrence, applies its signed amount
	// to the account balance, and advances the template's lastProcessed and
	// nextRecurringDate, atomically.
	MaterializeOccurrence(ctx context.Context, template, occurrence *domain.Transaction, processedAt, nextDate time.Time) error

	// Budgets.
	GetBudget(ctx context.Context, ownerID uuid.UUID) (*domain.Budget, error)
	UpsertBudget(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*domain.Budget, error)
	ListBudgetsWithDefaultAccount(ctx context.Context) ([]*BudgetWithAccount, error)
	SetLastAlertSent(ctx context.Context, budgetID uuid.UUID, at time.Time) error
}
