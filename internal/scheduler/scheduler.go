// Package scheduler provides the timer-driven triggers for background jobs:
// the recurrence scan, the budget sweep and the monthly report. Triggers run
// on independent tickers, concurrently with request handlers and with each
// other; a run that errors or is interrupted simply happens again on the next
// tick.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc is one scheduled job run.
type JobFunc func(ctx context.Context) error

type job struct {
	name          string
	interval      time.Duration
	alignMidnight bool
	run           JobFunc
}

// Scheduler runs registered jobs on wall-clock timers.
type Scheduler struct {
	log  zerolog.Logger
	jobs []job
	wg   sync.WaitGroup
	now  func() time.Time
}

// New creates an empty scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{log: log, now: time.Now}
}

// Every registers a job that runs once per interval, starting one interval
// after Start.
func (s *Scheduler) Every(name string, interval time.Duration, run JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: run})
}

// DailyAtMidnight registers a job that first runs at the next local midnight
// and every 24 hours after that.
func (s *Scheduler) DailyAtMidnight(name string, run JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: 24 * time.Hour, alignMidnight: true, run: run})
}

// Start launches one goroutine per registered job. Jobs stop when ctx is
// cancelled; Stop waits for in-flight runs to return.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop blocks until all job goroutines have exited. Cancel the context passed
// to Start first.
func (s *Scheduler) Stop() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	if j.alignMidnight {
		select {
		case <-time.After(untilNextMidnight(s.now())):
		case <-ctx.Done():
			return
		}
		s.runOnce(ctx, j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job", j.name).Msg("Scheduled job panicked")
		}
	}()

	start := s.now()
	if err := j.run(ctx); err != nil {
		s.log.Error().Err(err).Str("job", j.name).Msg("Scheduled job failed")
		return
	}
	s.log.Info().Str("job", j.name).Dur("duration", s.now().Sub(start)).Msg("Scheduled job completed")
}

// untilNextMidnight returns the time remaining until 00:00 local time.
func untilNextMidnight(now time.Time) time.Duration {
	year, month, day := now.Date()
	next := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
