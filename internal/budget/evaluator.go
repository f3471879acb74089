// Package budget computes month-to-date spending against each user's budget
// and raises at most one alert per calendar month.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/notify"
	"github.com/finledger/finledger/internal/store"
)

// alertThreshold is the percentage of budget used above which an alert fires.
var alertThreshold = decimal.NewFromInt(80)

// Evaluator runs periodically, reads the ledger and emits budget alerts
// through the mailer. A send failure marks that entry failed but never
// touches ledger state; lastAlertSent is only advanced after a successful
// send.
type Evaluator struct {
	ledger store.Ledger
	mailer notify.Mailer
	log    zerolog.Logger
	now    func() time.Time
}

// NewEvaluator creates a budget evaluator.
func NewEvaluator(ledger store.Ledger, mailer notify.Mailer, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		ledger: ledger,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
}

// Run evaluates every budget once. Per-budget failures are logged and do not
// stop the sweep; the next scheduled run retries naturally.
func (e *Evaluator) Run(ctx context.Context) error {
	entries, err := e.ledger.ListBudgetsWithDefaultAccount(ctx)
	if err != nil {
		return fmt.Errorf("budget sweep: %w", err)
	}

	for _, entry := range entries {
		if entry.DefaultAccount == nil {
			// no default account, nothing to evaluate against
			continue
		}
		if err := e.evaluate(ctx, entry); err != nil {
			e.log.Error().
				Err(err).
				Str("budget_id", entry.Budget.ID.String()).
				Msg("Budget evaluation failed")
		}
	}
	return nil
}

func (e *Evaluator) evaluate(ctx context.Context, entry *store.BudgetWithAccount) error {
	if !entry.Budget.Amount.IsPositive() {
		return nil
	}

	now := e.now()
	from, to := MonthWindow(now)
	totalExpenses, err := e.ledger.SumExpenses(ctx, entry.Budget.UserID, entry.DefaultAccount.ID, from, to)
	if err != nil {
		return err
	}

	percentageUsed := totalExpenses.
		Div(entry.Budget.Amount).
		Mul(decimal.NewFromInt(100))

	if percentageUsed.LessThanOrEqual(alertThreshold) {
		return nil
	}
	if entry.Budget.LastAlertSent != nil && !IsNewMonth(*entry.Budget.LastAlertSent, now) {
		// already alerted this calendar month
		return nil
	}

	subject := notify.BudgetAlertSubject(entry.DefaultAccount.Name)
	body := notify.BudgetAlertBody(entry.User.Name, percentageUsed, entry.Budget.Amount, totalExpenses)
	if err := e.mailer.Send(ctx, entry.User.Email, subject, body); err != nil {
		return err
	}

	if err := e.ledger.SetLastAlertSent(ctx, entry.Budget.ID, now); err != nil {
		return err
	}

	e.log.Info().
		Str("budget_id", entry.Budget.ID.String()).
		Str("percentage_used", percentageUsed.Round(1).String()).
		Msg("Budget alert sent")
	return nil
}

// MonthWindow returns the first and last instant of t's calendar month.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	year, month, _ := t.Date()
	from := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}

// IsNewMonth reports whether now falls in a different calendar month or year
// than last, meaning a fresh alert may fire.
func IsNewMonth(last, now time.Time) bool {
	return last.Month() != now.Month() || last.Year() != now.Year()
}
