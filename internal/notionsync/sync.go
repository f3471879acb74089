package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/finledger/finledger/internal/store"
)

const pageSize = 100

// Syncer mirrors ledger accounts and transactions into two Notion databases.
// The sync is idempotent: pages are matched on their ID title property, new
// rows are created, existing ones updated, and pages whose ledger row no
// longer exists are archived.
type Syncer struct {
	ledger store.Ledger
	notion NotionService
	log    zerolog.Logger
	now    func() time.Time

	accountsDBID     string
	transactionsDBID string
}

// NewSyncer creates a syncer for the given Notion databases.
func NewSyncer(ledger store.Ledger, notion NotionService, accountsDBID, transactionsDBID string, log zerolog.Logger) *Syncer {
	return &Syncer{
		ledger:           ledger,
		notion:           notion,
		log:              log,
		now:              time.Now,
		accountsDBID:     accountsDBID,
		transactionsDBID: transactionsDBID,
	}
}

// SyncAll mirrors every user's accounts and transactions into Notion.
// Per-page failures are logged and skipped; the next sync heals them.
func (s *Syncer) SyncAll(ctx context.Context) error {
	users, err := s.ledger.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("notion sync: %w", err)
	}

	accountProps := make(map[string]notionapi.Properties)
	txnProps := make(map[string]notionapi.Properties)
	syncedAt := s.now()

	for _, user := range users {
		accounts, err := s.ledger.ListAccounts(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("notion sync: list accounts for %s: %w", user.ID, err)
		}
		for _, acc := range accounts {
			accountProps[acc.ID.String()] = AccountToProperties(acc, syncedAt)
		}

		txns, err := s.ledger.ListTransactions(ctx, user.ID, store.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("notion sync: list transactions for %s: %w", user.ID, err)
		}
		for _, txn := range txns {
			txnProps[txn.ID.String()] = TransactionToProperties(txn)
		}
	}

	if err := s.syncDatabase(ctx, s.accountsDBID, "Account ID", accountProps); err != nil {
		return err
	}
	if err := s.syncDatabase(ctx, s.transactionsDBID, "Transaction ID", txnProps); err != nil {
		return err
	}

	s.log.Info().
		Int("users", len(users)).
		Int("accounts", len(accountProps)).
		Int("transactions", len(txnProps)).
		Msg("Notion sync completed")
	return nil
}

// syncDatabase reconciles one Notion database against the desired set of
// pages, keyed by the given title property.
func (s *Syncer) syncDatabase(ctx context.Context, databaseID, keyProperty string, desired map[string]notionapi.Properties) error {
	pages, err := s.queryAllPages(ctx, databaseID)
	if err != nil {
		return fmt.Errorf("notion sync: %w", err)
	}

	existing := make(map[string]notionapi.Page, len(pages))
	var archived int
	for _, page := range pages {
		key := extractPageKey(page, keyProperty)
		if key == "" || desired[key] == nil {
			// stale page, or one from an older sync without a key
			if err := s.notion.DeletePage(ctx, string(page.ID)); err != nil {
				s.log.Warn().
					Err(err).
					Str("page_id", string(page.ID)).
					Msg("Failed to archive stale Notion page")
				continue
			}
			archived++
			continue
		}
		existing[key] = page
	}

	var created, updated int
	for key, props := range desired {
		if page, ok := existing[key]; ok {
			if _, err := s.notion.UpdatePage(ctx, string(page.ID), props); err != nil {
				s.log.Warn().
					Err(err).
					Str("key", key).
					Msg("Failed to update Notion page")
				continue
			}
			updated++
			continue
		}
		if _, err := s.notion.CreatePage(ctx, databaseID, props); err != nil {
			s.log.Warn().
				Err(err).
				Str("key", key).
				Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	s.log.Info().
		Str("database_id", databaseID).
		Int("created", created).
		Int("updated", updated).
		Int("archived", archived).
		Msg("Notion database reconciled")
	return nil
}

// queryAllPages pages through a Notion database and returns every page.
func (s *Syncer) queryAllPages(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}
