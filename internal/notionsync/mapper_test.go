package notionsync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/domain"
)

func TestTransactionToProperties(t *testing.T) {
	monthly := domain.Monthly
	next := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	txn := &domain.Transaction{
		ID:                uuid.New(),
		AccountID:         uuid.New(),
		Type:              domain.Expense,
		Amount:            decimal.RequireFromString("42.50"),
		Category:          "groceries",
		Description:       "Weekly shop",
		Date:              time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:            domain.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: &monthly,
		NextRecurringDate: &next,
	}

	props := TransactionToProperties(txn)

	title, ok := props["Transaction ID"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		t.Fatal("missing Transaction ID title property")
	}
	if got := title.Title[0].Text.Content; got != txn.ID.String() {
		t.Errorf("title = %s, want transaction id %s", got, txn.ID)
	}

	amount, ok := props["Amount"].(notionapi.NumberProperty)
	if !ok {
		t.Fatal("missing Amount property")
	}
	if amount.Number != 42.5 {
		t.Errorf("amount = %v, want 42.5", amount.Number)
	}

	if _, ok := props["Description"]; !ok {
		t.Error("description should be present when set")
	}
	if _, ok := props["Recurring Interval"]; !ok {
		t.Error("recurring interval should be present for recurring transactions")
	}
	if _, ok := props["Next Occurrence"]; !ok {
		t.Error("next occurrence should be present when scheduled")
	}
}

func TestTransactionToPropertiesOmitsOptionalFields(t *testing.T) {
	txn := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      domain.Income,
		Amount:    decimal.NewFromInt(100),
		Category:  "salary",
		Date:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.StatusCompleted,
	}

	props := TransactionToProperties(txn)
	if _, ok := props["Description"]; ok {
		t.Error("empty description should be omitted")
	}
	if _, ok := props["Recurring Interval"]; ok {
		t.Error("interval should be omitted for one-off transactions")
	}
	if _, ok := props["Next Occurrence"]; ok {
		t.Error("next occurrence should be omitted for one-off transactions")
	}
}

func TestAccountToProperties(t *testing.T) {
	acc := &domain.Account{
		ID:        uuid.New(),
		Name:      "Savings",
		Type:      domain.AccountSavings,
		Balance:   decimal.RequireFromString("1234.56"),
		IsDefault: true,
	}

	props := AccountToProperties(acc, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))

	title, ok := props["Account ID"].(notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		t.Fatal("missing Account ID title property")
	}
	if got := title.Title[0].Text.Content; got != acc.ID.String() {
		t.Errorf("title = %s, want account id %s", got, acc.ID)
	}
	if _, ok := props["Synced At"]; !ok {
		t.Error("synced at timestamp should be present")
	}
}

func TestExtractPageKey(t *testing.T) {
	key := uuid.NewString()
	page := notionapi.Page{
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: key}},
			},
		},
	}

	if got := extractPageKey(page, "Transaction ID"); got != key {
		t.Errorf("extractPageKey = %q, want %q", got, key)
	}
	if got := extractPageKey(page, "Missing"); got != "" {
		t.Errorf("missing property should yield empty key, got %q", got)
	}
	if got := extractPageKey(notionapi.Page{Properties: notionapi.Properties{}}, "Transaction ID"); got != "" {
		t.Errorf("empty page should yield empty key, got %q", got)
	}
}
