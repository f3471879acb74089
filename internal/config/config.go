// Package config loads service configuration from the environment. Every
// binary shares one Config; unused fields cost nothing.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration of the service.
type Config struct {
	// Port is the HTTP listen port of the API server.
	Port string

	// DatabaseDSN is the Postgres connection string.
	DatabaseDSN string

	// RateLimitBurst is the per-owner bucket capacity for transaction
	// creation; RateLimitRefill is how often one token comes back.
	RateLimitBurst  int
	RateLimitRefill time.Duration

	// BudgetSweepEvery is the interval between budget evaluations.
	BudgetSweepEvery time.Duration

	// ResendAPIKey and EmailFrom configure outgoing email. An empty key
	// disables delivery.
	ResendAPIKey string
	EmailFrom    string

	// GeminiModel overrides the default model for receipt scanning and
	// report insights. GeminiInsights toggles model-written report bullets.
	GeminiModel    string
	GeminiInsights bool

	// ReceiptBucket is the GCS bucket for archiving receipt originals. Empty
	// disables archiving.
	ReceiptBucket string

	// NotionToken plus the two database ids configure the Notion mirror.
	NotionToken            string
	NotionAccountsDBID     string
	NotionTransactionsDBID string

	// BigQuery export destination.
	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string
}

// Load reads configuration from the environment with sensible defaults.
func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseDSN: getenv("DATABASE_DSN", "host=localhost user=finledger password=finledger dbname=finledger port=5432 sslmode=disable"),

		RateLimitBurst:  intenv("RATE_LIMIT_BURST", 10),
		RateLimitRefill: durenv("RATE_LIMIT_REFILL", 30*time.Minute),

		BudgetSweepEvery: durenv("BUDGET_SWEEP_EVERY", 6*time.Hour),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getenv("EMAIL_FROM", "Finledger <noreply@finledger.dev>"),

		GeminiModel:    os.Getenv("GEMINI_MODEL"),
		GeminiInsights: boolenv("GEMINI_INSIGHTS", false),

		ReceiptBucket: os.Getenv("RECEIPT_BUCKET"),

		NotionToken:            os.Getenv("NOTION_TOKEN"),
		NotionAccountsDBID:     os.Getenv("NOTION_ACCOUNTS_DB_ID"),
		NotionTransactionsDBID: os.Getenv("NOTION_TRANSACTIONS_DB_ID"),

		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getenv("BIGQUERY_DATASET", "finledger"),
		BigQueryTable:   getenv("BIGQUERY_TABLE", "transactions"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intenv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durenv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func boolenv(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
