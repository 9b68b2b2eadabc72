package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rstenmark/fiscaldata/internal/models"
)

// Config contains cache database connection options.
type Config struct {
	Path string // SQLite database path; empty or ":memory:" opens in memory
	DSN  string // Optional DSN override
}

// Open initialises a gorm.DB for the local cache store.
func Open(cfg Config) (*gorm.DB, error) {
	return openSQLite(cfg)
}

// AutoMigrate idempotently ensures the cache table exists. There is no schema
// versioning; re-running against an existing table is a no-op.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := db.AutoMigrate(&models.AuctionSeries{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}
