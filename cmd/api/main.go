package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finledger/finledger/internal/api/handlers"
	"github.com/finledger/finledger/internal/api/middleware"
	"github.com/finledger/finledger/internal/budget"
	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/jobs/inmemory"
	"github.com/finledger/finledger/internal/logger"
	"github.com/finledger/finledger/internal/notify"
	"github.com/finledger/finledger/internal/ratelimit"
	"github.com/finledger/finledger/internal/receipts"
	"github.com/finledger/finledger/internal/recurrence"
	"github.com/finledger/finledger/internal/reports"
	"github.com/finledger/finledger/internal/scheduler"
	"github.com/finledger/finledger/internal/service"
	"github.com/finledger/finledger/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New()
	ctx := context.Background()

	// Ledger store.
	ledger, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	// Rate limiting: each owner may create a burst of transactions, refilled
	// slowly over the hour.
	limiter := ratelimit.NewTokenBucket(cfg.RateLimitRefill, cfg.RateLimitBurst)

	// Job infrastructure for recurrence materialization.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Notifications.
	var mailer notify.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom, log)
	} else {
		log.Warn().Msg("No email API key configured - alerts will only be logged")
		mailer = notify.NewLogMailer(log)
	}

	// Services.
	transactionSvc := service.NewTransactionService(ledger, limiter, log)
	accountSvc := service.NewAccountService(ledger, log)
	budgetSvc := service.NewBudgetService(ledger, log)

	// Receipt scanning.
	receiptScanner := receipts.NewScanner(cfg.GeminiModel, log)
	var receiptArchive *receipts.Archive
	if cfg.ReceiptBucket != "" {
		receiptArchive, err = receipts.NewArchive(ctx, cfg.ReceiptBucket, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create receipt archive")
		}
		defer receiptArchive.Close()
	} else {
		log.Warn().Msg("No receipt bucket configured - receipt originals will not be archived")
	}

	// Background workers.
	worker := recurrence.NewWorker(ledger, log)
	scanner := recurrence.NewScanner(ledger, jobQueue, log)
	evaluator := budget.NewEvaluator(ledger, mailer, log)

	var insights reports.InsightGenerator
	if cfg.GeminiInsights {
		insights = reports.NewGeminiInsights(cfg.GeminiModel)
	}
	reporter := reports.NewReporter(ledger, mailer, insights, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting recurrence job worker")
		if err := jobQueue.Start(workerCtx, worker.Handle); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Scheduled jobs: recurrence scan daily at midnight, budget sweep every
	// six hours, monthly report on the first of each month (the job itself
	// checks the date).
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
	sched.Start(workerCtx)

	// Handlers.
	accountsHandler := handlers.NewAccountsHandler(accountSvc, log)
	transactionsHandler := handlers.NewTransactionsHandler(transactionSvc, log)
	budgetsHandler := handlers.NewBudgetsHandler(budgetSvc, log)
	receiptsHandler := handlers.NewReceiptsHandler(receiptScanner, receiptArchive, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Router.
	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.List(w, r)
		case http.MethodPost:
			accountsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if accountID, ok := strings.CutSuffix(rest, "/default"); ok {
			if r.Method == http.MethodPut {
				accountsHandler.SetDefault(w, r, accountID)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
			return
		}
		if r.Method == http.MethodGet {
			accountsHandler.Get(w, r, rest)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		txnID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.Get(w, r, txnID)
		case http.MethodPut:
			transactionsHandler.Update(w, r, txnID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budget", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			budgetsHandler.Get(w, r)
		case http.MethodPut:
			budgetsHandler.Update(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/receipts/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.Scan(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.Get(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	protected := middleware.Auth(ledger)(mux)

	// Health check stays outside auth.
	root := http.NewServeMux()
	root.Handle("/api/", protected)
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
