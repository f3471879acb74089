package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/finledger/finledger/internal/domain"
)

// Store is the Postgres-backed Ledger. The pool is opened once at process
// start and closed at shutdown; all atomic units run inside db.Transaction.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres using the given DSN.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the schema for all ledger tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&domain.User{},
		&domain.Account{},
		&domain.Transaction{},
		&domain.Budget{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps driver and GORM errors onto the domain taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if isSerializationFailure(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

// isSerializationFailure matches Postgres SQLSTATE 40001 (serialization
// failure) and 40P01 (deadlock detected), both of which mean the atomic unit
// lost a race and the whole logical operation should be retried.
func isSerializationFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "40P01")
}

var _ Ledger = (*Store)(nil)
