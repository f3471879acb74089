// Package reports builds and delivers the monthly financial summary email.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/budget"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/notify"
	"github.com/finledger/finledger/internal/store"
)

// Stats summarizes one month of a user's transactions.
type Stats struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	ByCategory   map[string]decimal.Decimal
	Count        int
}

// Compute aggregates the given transactions into monthly stats. Only expense
// categories appear in ByCategory.
func Compute(txns []*domain.Transaction) Stats {
	stats := Stats{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   make(map[string]decimal.Decimal),
		Count:        len(txns),
	}
	for _, t := range txns {
		switch t.Type {
		case domain.Income:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case domain.Expense:
			stats.TotalExpense = stats.TotalExpense.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
		}
	}
	return stats
}

// InsightGenerator turns monthly stats into short human-readable bullets.
// Implementations are best effort: a failure falls back to stock insights.
type InsightGenerator interface {
	Insights(ctx context.Context, month time.Time, stats Stats) ([]string, error)
}

// Reporter sends each user a summary of the previous calendar month.
type Reporter struct {
	ledger   store.Ledger
	mailer   notify.Mailer
	insights InsightGenerator
	log      zerolog.Logger
	now      func() time.Time
}

// NewReporter creates a monthly reporter. insights may be nil.
func NewReporter(ledger store.Ledger, mailer notify.Mailer, insights InsightGenerator, log zerolog.Logger) *Reporter {
	return &Reporter{
		ledger:   ledger,
		mailer:   mailer,
		insights: insights,
		log:      log,
		now:      time.Now,
	}
}

// Run builds and sends last month's report for every user. Per-user failures
// are logged and do not stop the sweep.
func (r *Reporter) Run(ctx context.Context) error {
	users, err := r.ledger.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("monthly report sweep: %w", err)
	}

	lastMonth := r.now().AddDate(0, -1, 0)
	from, to := budget.MonthWindow(lastMonth)

	sent := 0
	for _, user := range users {
		if err := r.report(ctx, user, lastMonth, from, to); err != nil {
			r.log.Error().
				Err(err).
				Str("user_id", user.ID.String()).
				Msg("Monthly report failed")
			continue
		}
		sent++
	}

	r.log.Info().Int("users", len(users)).Int("sent", sent).Msg("Monthly report sweep completed")
	return nil
}

func (r *Reporter) report(ctx context.Context, user *domain.User, month time.Time, from, to time.Time) error {
	txns, err := r.ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{
		From: &from,
		To:   &to,
	})
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		// nothing happened, nothing to report
		return nil
	}

	stats := Compute(txns)
	insights := r.insightsFor(ctx, month, stats)

	subject := notify.MonthlyReportSubject(month)
	body := notify.MonthlyReportBody(user.Name, month, stats.TotalIncome, stats.TotalExpense, stats.ByCategory, insights)
	return r.mailer.Send(ctx, user.Email, subject, body)
}

func (r *Reporter) insightsFor(ctx context.Context, month time.Time, stats Stats) []string {
	if r.insights != nil {
		lines, err := r.insights.Insights(ctx, month, stats)
		if err == nil && len(lines) > 0 {
			return lines
		}
		if err != nil {
			r.log.Warn().Err(err).Msg("Insight generation failed, using defaults")
		}
	}
	return defaultInsights(stats)
}

// defaultInsights produces stock bullets when no generator is configured or
// the generator fails.
func defaultInsights(stats Stats) []string {
	net := stats.TotalIncome.Sub(stats.TotalExpense)
	insights := []string{
		fmt.Sprintf("You recorded %d transactions this month.", stats.Count),
	}
	if net.IsNegative() {
		insights = append(insights, "You spent more than you earned; consider reviewing your largest expense categories.")
	} else {
		insights = append(insights, fmt.Sprintf("You saved %s this month. Keep it up!", net.StringFixed(2)))
	}
	return insights
}
