// Package recurrence derives occurrence schedules for recurring transactions
// and materializes due occurrences into the ledger.
package recurrence

import (
	"fmt"
	"time"

	"github.com/finledger/finledger/internal/domain"
)

// NextOccurrence returns the next due date after the given one.
//
// DAILY adds one day, WEEKLY seven. MONTHLY advances one calendar month
// keeping the day-of-month, clamped to the target month's last day when it is
// shorter (Jan 31 -> Feb 28/29). YEARLY advances one calendar year with the
// same clamp (Feb 29 -> Feb 28 off leap years). An unrecognized interval is a
// configuration error rejected at creation time, never a runtime surprise.
func NextOccurrence(date time.Time, interval domain.RecurringInterval) (time.Time, error) {
	switch interval {
	case domain.Daily:
		return date.AddDate(0, 0, 1), nil
	case domain.Weekly:
		return date.AddDate(0, 0, 7), nil
	case domain.Monthly:
		return addMonthsClamped(date, 1), nil
	case domain.Yearly:
		return addMonthsClamped(date, 12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown recurring interval %q", domain.ErrValidation, interval)
	}
}

// addMonthsClamped advances by whole months without the day-overflow
// normalization of time.AddDate (which would turn Jan 31 + 1 month into
// Mar 2/3).
func addMonthsClamped(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	hour, min, sec := date.Clock()

	anchor := time.Date(year, month+time.Month(months), 1, hour, min, sec, date.Nanosecond(), date.Location())
	if last := daysInMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day, hour, min, sec, date.Nanosecond(), date.Location())
}

// daysInMonth returns the number of days in the given month. Day zero of the
// following month normalizes to this month's last day.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
