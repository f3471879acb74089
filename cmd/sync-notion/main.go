// Command sync-notion mirrors ledger accounts and transactions into Notion
// databases. Run it manually or from cron; each run fully reconciles the
// mirror.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/logger"
	"github.com/finledger/finledger/internal/notionsync"
	"github.com/finledger/finledger/internal/store"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or NOTION_TOKEN env)")
	accountsDBID := flag.String("accounts-db-id", cfg.NotionAccountsDBID, "Notion accounts database ID (or NOTION_ACCOUNTS_DB_ID env)")
	transactionsDBID := flag.String("transactions-db-id", cfg.NotionTransactionsDBID, "Notion transactions database ID (or NOTION_TRANSACTIONS_DB_ID env)")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *accountsDBID == "" || *transactionsDBID == "" {
		log.Fatal().Msg("Error: --accounts-db-id and --transactions-db-id are required")
	}

	// Bounded context so a stuck API call doesn't hang the CLI.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ledger, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)
	syncer := notionsync.NewSyncer(ledger, notionClient, *accountsDBID, *transactionsDBID, log)

	log.Info().Msg("Starting Notion sync")
	if err := syncer.SyncAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}
}
