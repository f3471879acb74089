package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/finledger/finledger/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		interval domain.RecurringInterval
		want     time.Time
	}{
		{"daily", date(2025, 3, 15), domain.Daily, date(2025, 3, 16)},
		{"daily across month end", date(2025, 3, 31), domain.Daily, date(2025, 4, 1)},
		{"weekly", date(2025, 3, 15), domain.Weekly, date(2025, 3, 22)},
		{"weekly across year end", date(2025, 12, 29), domain.Weekly, date(2026, 1, 5)},
		{"monthly keeps day", date(2025, 3, 15), domain.Monthly, date(2025, 4, 15)},
		{"monthly jan 31 clamps to feb 28", date(2025, 1, 31), domain.Monthly, date(2025, 2, 28)},
		{"monthly jan 31 clamps to feb 29 leap", date(2024, 1, 31), domain.Monthly, date(2024, 2, 29)},
		{"monthly mar 31 clamps to apr 30", date(2025, 3, 31), domain.Monthly, date(2025, 4, 30)},
		{"monthly dec wraps year", date(2025, 12, 10), domain.Monthly, date(2026, 1, 10)},
		{"yearly", date(2025, 6, 10), domain.Yearly, date(2026, 6, 10)},
		{"yearly feb 29 clamps off leap", date(2024, 2, 29), domain.Yearly, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.from, tt.interval)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%s, %s) = %s, want %s",
					tt.from.Format("2006-01-02"), tt.interval,
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextOccurrenceUnknownInterval(t *testing.T) {
	_, err := NextOccurrence(date(2025, 1, 1), domain.RecurringInterval("FORTNIGHTLY"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestNextOccurrenceAlwaysAdvances(t *testing.T) {
	intervals := []domain.RecurringInterval{domain.Daily, domain.Weekly, domain.Monthly, domain.Yearly}
	starts := []time.Time{
		date(2024, 2, 29),
		date(2025, 1, 31),
		date(2025, 12, 31),
		date(2025, 6, 1),
	}

	for _, interval := range intervals {
		for _, start := range starts {
			got, err := NextOccurrence(start, interval)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.After(start) {
				t.Errorf("NextOccurrence(%s, %s) = %s does not advance",
					start.Format("2006-01-02"), interval, got.Format("2006-01-02"))
			}
		}
	}
}

func TestTwelveMonthlyStepsEqualOneYear(t *testing.T) {
	// holds for any start day <= 28, where no clamping occurs
	cur := date(2025, 2, 10)
	for i := 0; i < 12; i++ {
		next, err := NextOccurrence(cur, domain.Monthly)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cur = next
	}
	if want := date(2026, 2, 10); !cur.Equal(want) {
		t.Errorf("after 12 monthly steps got %s, want %s", cur.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNextOccurrencePreservesTimeOfDay(t *testing.T) {
	start := time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)
	got, err := NextOccurrence(start, domain.Monthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("time of day not preserved: got %s", got)
	}
	if got.Day() != 28 {
		t.Errorf("day not clamped: got %d", got.Day())
	}
}
