package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetAlertSubject returns the subject line for a budget alert.
func BudgetAlertSubject(accountName string) string {
	return fmt.Sprintf("Budget Alert for %s", accountName)
}

// BudgetAlertBody renders the plain-text body of a budget alert.
func BudgetAlertBody(userName string, percentageUsed, budgetAmount, totalExpenses decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", userName)
	fmt.Fprintf(&b, "You have used %s%% of your monthly budget.\n\n", percentageUsed.Round(1))
	fmt.Fprintf(&b, "Budget amount: %s\n", budgetAmount.StringFixed(2))
	fmt.Fprintf(&b, "Spent so far:  %s\n", totalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "Remaining:     %s\n", budgetAmount.Sub(totalExpenses).StringFixed(2))
	return b.String()
}

// MonthlyReportSubject returns the subject line for a monthly report.
func MonthlyReportSubject(month time.Time) string {
	return fmt.Sprintf("Your Monthly Financial Report - %s", month.Format("January 2006"))
}

// MonthlyReportBody renders the plain-text body of a monthly report:
// totals, a by-category expense breakdown, and optional insight bullets.
func MonthlyReportBody(userName string, month time.Time, totalIncome, totalExpense decimal.Decimal, byCategory map[string]decimal.Decimal, insights []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", userName)
	fmt.Fprintf(&b, "Here is your financial summary for %s:\n\n", month.Format("January 2006"))
	fmt.Fprintf(&b, "Total income:   %s\n", totalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Total expenses: %s\n", totalExpense.StringFixed(2))
	fmt.Fprintf(&b, "Net:            %s\n", totalIncome.Sub(totalExpense).StringFixed(2))

	if len(byCategory) > 0 {
		b.WriteString("\nExpenses by category:\n")
		categories := make([]string, 0, len(byCategory))
		for c := range byCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "  %-16s %s\n", c+":", byCategory[c].StringFixed(2))
		}
	}

	if len(insights) > 0 {
		b.WriteString("\nInsights:\n")
		for _, line := range insights {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	return b.String()
}
