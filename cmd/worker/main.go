// Command worker runs the background side of the service on its own: the job
// queue consumer plus the scheduled recurrence scan, budget sweep and monthly
// report. Use it to keep API and background load on separate processes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finledger/finledger/internal/budget"
	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/jobs/inmemory"
	"github.com/finledger/finledger/internal/logger"
	"github.com/finledger/finledger/internal/notify"
	"github.com/finledger/finledger/internal/recurrence"
	"github.com/finledger/finledger/internal/reports"
	"github.com/finledger/finledger/internal/scheduler"
	"github.com/finledger/finledger/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	ledger, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	var mailer notify.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom, log)
	} else {
		log.Warn().Msg("No email API key configured - alerts will only be logged")
		mailer = notify.NewLogMailer(log)
	}

	worker := recurrence.NewWorker(ledger, log)
	scanner := recurrence.NewScanner(ledger, jobQueue, log)
	evaluator := budget.NewEvaluator(ledger, mailer, log)

	var insights reports.InsightGenerator
	if cfg.GeminiInsights {
		insights = reports.NewGeminiInsights(cfg.GeminiModel)
	}
	reporter := reports.NewReporter(ledger, mailer, insights, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().Msg("Starting worker service")

	if err := jobQueue.Start(ctx, worker.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	sched := scheduler.New(log)
	sched.DailyAtMidnight("recurrence-scan", func(ctx context.Context) error {
		_, err := scanner.Scan(ctx)
		return err
	})
	sched.Every("budget-sweep", cfg.BudgetSweepEvery, evaluator.Run)
	sched.DailyAtMidnight("monthly-report", func(ctx context.Context) error {
		if time.Now().Day() != 1 {
			return nil
		}
		return reporter.Run(ctx)
	})
	sched.Start(ctx)

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
