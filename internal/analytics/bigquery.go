// Package analytics exports ledger transactions to BigQuery for offline
// analysis. The warehouse is write-mostly; the ledger in Postgres stays the
// source of truth.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/finledger/finledger/internal/domain"
)

const dateFormat = "2006-01-02"

// TransactionRow is the warehouse shape of one ledger transaction. Amounts
// are exported as strings to keep decimal precision intact.
type TransactionRow struct {
	TransactionID string    `bigquery:"transaction_id"`
	UserID        string    `bigquery:"user_id"`
	AccountID     string    `bigquery:"account_id"`
	Type          string    `bigquery:"type"`
	Amount        string    `bigquery:"amount"`
	SignedAmount  string    `bigquery:"signed_amount"`
	Category      string    `bigquery:"category"`
	Description   string    `bigquery:"description"`
	Date          time.Time `bigquery:"transaction_date"`
	Status        string    `bigquery:"status"`
	IsRecurring   bool      `bigquery:"is_recurring"`
	ExportedAt    time.Time `bigquery:"exported_at"`
}

// Exporter streams transaction rows into a BigQuery table.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	table   string
	log     zerolog.Logger
	now     func() time.Time
}

// NewExporter creates an exporter for project/dataset/table. It assumes
// Application Default Credentials are configured.
func NewExporter(ctx context.Context, projectID, dataset, table string, log zerolog.Logger) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &Exporter{
		client:  client,
		dataset: dataset,
		table:   table,
		log:     log,
		now:     time.Now,
	}, nil
}

// Export inserts the given transactions as warehouse rows.
func (e *Exporter) Export(ctx context.Context, txns []*domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	exportedAt := e.now()
	rows := make([]*TransactionRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, rowFromTransaction(t, exportedAt))
	}

	inserter := e.client.Dataset(e.dataset).Table(e.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("export transactions: inserting rows: %w", err)
	}

	e.log.Info().Int("rows", len(rows)).Msg("Transactions exported to BigQuery")
	return nil
}

// CountRows returns how many rows the warehouse holds for the given date
// range, used to sanity-check exports.
func (e *Exporter) CountRows(ctx context.Context, from, to time.Time) (int64, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s.%s
		WHERE transaction_date >= @from_date
		  AND transaction_date <= @to_date
	`, e.dataset, e.table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "from_date", Value: from.Format(dateFormat)},
		{Name: "to_date", Value: to.Format(dateFormat)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rows: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count rows: iter next: %w", err)
	}
	return row.N, nil
}

// Close releases the underlying BigQuery client.
func (e *Exporter) Close() error {
	return e.client.Close()
}

func rowFromTransaction(t *domain.Transaction, exportedAt time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID: t.ID.String(),
		UserID:        t.UserID.String(),
		AccountID:     t.AccountID.String(),
		Type:          string(t.Type),
		Amount:        t.Amount.String(),
		SignedAmount:  t.SignedAmount().String(),
		Category:      t.Category,
		Description:   t.Description,
		Date:          t.Date,
		Status:        string(t.Status),
		IsRecurring:   t.IsRecurring,
		ExportedAt:    exportedAt,
	}
}
