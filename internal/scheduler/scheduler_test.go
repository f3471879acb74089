package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEveryRunsRepeatedly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	s := New(zerolog.Nop())
	s.Every("tick", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Stop()

	if runs.Load() < 3 {
		t.Errorf("job ran %d times, want at least 3", runs.Load())
	}
}

func TestStopWaitsForGoroutines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := New(zerolog.Nop())
	s.Every("idle", time.Hour, func(ctx context.Context) error { return nil })
	s.DailyAtMidnight("daily", func(ctx context.Context) error { return nil })
	s.Start(ctx)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestFailingJobKeepsTicking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	s := New(zerolog.Nop())
	s.Every("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("sweep failed")
	})
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Stop()

	if runs.Load() < 2 {
		t.Errorf("failing job ran %d times, want at least 2", runs.Load())
	}
}

func TestPanickingJobDoesNotKillTheLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	s := New(zerolog.Nop())
	s.Every("panicky", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		panic("boom")
	})
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Stop()

	if runs.Load() < 2 {
		t.Errorf("panicking job ran %d times, want at least 2", runs.Load())
	}
}

func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)
	if got := untilNextMidnight(now); got != time.Hour {
		t.Errorf("untilNextMidnight = %s, want 1h", got)
	}

	// just past midnight, almost a full day remains
	now = time.Date(2025, 3, 15, 0, 0, 1, 0, time.UTC)
	if got := untilNextMidnight(now); got != 24*time.Hour-time.Second {
		t.Errorf("untilNextMidnight = %s, want 23h59m59s", got)
	}
}
