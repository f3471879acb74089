// Command migrate applies the database schema and optionally seeds demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/logger"
	"github.com/finledger/finledger/internal/store"
)

var (
	seed     = flag.Bool("seed", false, "insert demo data after migrating")
	seedDays = flag.Int("seed-days", 90, "how many days of demo transactions to generate")
)

// seedCategories maps expense categories to amount ranges for demo data.
var seedCategories = []struct {
	name     string
	txnType  domain.TransactionType
	min, max int
}{
	{"salary", domain.Income, 5000, 8000},
	{"freelance", domain.Income, 1000, 3000},
	{"housing", domain.Expense, 1000, 2000},
	{"groceries", domain.Expense, 200, 600},
	{"transportation", domain.Expense, 100, 500},
	{"utilities", domain.Expense, 100, 300},
	{"entertainment", domain.Expense, 50, 200},
	{"food", domain.Expense, 50, 150},
}

func main() {
	flag.Parse()

	cfg := config.Load()
	log := logger.New()
	ctx := context.Background()

	ledger, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	if err := ledger.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Msg("Schema migrated")

	if !*seed {
		return
	}

	if err := seedDemoData(ctx, ledger, *seedDays); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	log.Info().Int("days", *seedDays).Msg("Demo data seeded")
}

// seedDemoData creates a demo user with one account and a few months of
// plausible transactions. Balances reconcile because every transaction goes
// through the same atomic write path the API uses.
func seedDemoData(ctx context.Context, ledger *store.Store, days int) error {
	user := &domain.User{
		SubjectID: "demo-subject",
		Email:     "demo@finledger.dev",
		Name:      "Demo User",
	}
	if err := ledger.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	account := &domain.Account{
		UserID:  user.ID,
		Name:    "Everyday",
		Type:    domain.AccountCurrent,
		Balance: decimal.Zero,
	}
	if err := ledger.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now()

	for day := days; day >= 0; day-- {
		date := now.AddDate(0, 0, -day)

		// one to three transactions per day
		for i := 0; i < 1+rng.Intn(3); i++ {
			c := seedCategories[rng.Intn(len(seedCategories))]
			amount := decimal.NewFromInt(int64(c.min + rng.Intn(c.max-c.min)))

			txn := &domain.Transaction{
				UserID:      user.ID,
				AccountID:   account.ID,
				Type:        c.txnType,
				Amount:      amount,
				Category:    c.name,
				Description: fmt.Sprintf("Demo %s", c.name),
				Date:        date,
				Status:      domain.StatusCompleted,
			}
			if err := ledger.CreateTransaction(ctx, txn); err != nil {
				return fmt.Errorf("seed transaction: %w", err)
			}
		}
	}

	if _, err := ledger.UpsertBudget(ctx, user.ID, decimal.NewFromInt(3000)); err != nil {
		return fmt.Errorf("seed budget: %w", err)
	}
	return nil
}
