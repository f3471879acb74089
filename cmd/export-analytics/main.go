// Command export-analytics pushes ledger transactions for a date range into
// the BigQuery warehouse.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/finledger/finledger/internal/analytics"
	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/domain"
	"github.com/finledger/finledger/internal/logger"
	"github.com/finledger/finledger/internal/store"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	project := flag.String("project", cfg.BigQueryProject, "GCP project ID (or BIGQUERY_PROJECT env)")
	flag.Parse()

	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *project == "" {
		log.Fatal().Msg("Error: --project is required")
	}

	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().Msg("Error: end-date must be after start-date")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ledger, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	exporter, err := analytics.NewExporter(ctx, *project, cfg.BigQueryDataset, cfg.BigQueryTable, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exporter")
	}
	defer exporter.Close()

	users, err := ledger.ListUsers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list users")
	}

	var all []*domain.Transaction
	for _, user := range users {
		txns, err := ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{
			From: &startDate,
			To:   &endDate,
		})
		if err != nil {
			log.Fatal().Err(err).Str("user_id", user.ID.String()).Msg("Failed to list transactions")
		}
		all = append(all, txns...)
	}

	if err := exporter.Export(ctx, all); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	count, err := exporter.CountRows(ctx, startDate, endDate)
	if err != nil {
		log.Warn().Err(err).Msg("Could not verify exported row count")
	} else {
		log.Info().Int64("warehouse_rows", count).Msg("Export verified")
	}

	log.Info().Int("exported", len(all)).Msg("Analytics export completed")
}
