package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountCurrent AccountType = "CURRENT"
	AccountSavings AccountType = "SAVINGS"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountCurrent || t == AccountSavings
}

// TransactionType determines the sign a transaction applies to its account
// balance. Amounts are always stored as positive magnitudes; the sign is
// derived from the type at every computation site, never stored.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// TransactionStatus is the lifecycle status of a transaction. Only COMPLETED
// recurring transactions are picked up by the recurrence scheduler.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
)

// RecurringInterval is the cadence of a recurring transaction.
type RecurringInterval string

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

// Valid reports whether i is a known recurring interval.
func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// User maps the auth collaborator's opaque subject identifier to an internal
// owner id. All accounts, transactions and budgets hang off a User.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SubjectID string    `gorm:"uniqueIndex;not null" json:"subject_id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a ledger account. Its balance is, at all times, exactly the
// signed sum of its non-deleted transactions; every write path that touches a
// transaction reconciles the balance in the same atomic unit.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string          `gorm:"not null" json:"name"`
	Type      AccountType     `gorm:"not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"balance"`
	IsDefault bool            `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is a single ledger entry. Amount is a positive magnitude.
type Transaction struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"account_id"`
	Type              TransactionType    `gorm:"not null" json:"type"`
	Amount            decimal.Decimal    `gorm:"type:numeric(18,2);not null" json:"amount"`
	Category          string             `gorm:"not null" json:"category"`
	Description       string             `json:"description"`
	Date              time.Time          `gorm:"not null;index" json:"date"`
	Status            TransactionStatus  `gorm:"not null;default:COMPLETED" json:"status"`
	IsRecurring       bool               `gorm:"not null;default:false" json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time         `gorm:"index" json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time         `json:"last_processed,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SignedAmount returns the amount with the sign implied by the transaction
// type: negative for EXPENSE, positive for INCOME.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Validate checks the structural invariants of a transaction before it is
// written: positive amount, known enums, and an interval present if and only
// if the transaction is recurring.
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, t.Amount)
	}
	if t.Category == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if t.IsRecurring {
		if t.RecurringInterval == nil {
			return fmt.Errorf("%w: recurring interval is required for recurring transactions", ErrValidation)
		}
		if !t.RecurringInterval.Valid() {
			return fmt.Errorf("%w: unknown recurring interval %q", ErrValidation, *t.RecurringInterval)
		}
	} else if t.RecurringInterval != nil {
		return fmt.Errorf("%w: recurring interval set on a non-recurring transaction", ErrValidation)
	}
	return nil
}

// Budget is the single monthly spending budget of a user. LastAlertSent is
// written only by the budget evaluator, at most once per calendar month.
type Budget struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
