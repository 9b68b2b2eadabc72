package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rstenmark/fiscaldata/internal/auction"
	"github.com/rstenmark/fiscaldata/internal/database"
	"github.com/rstenmark/fiscaldata/internal/models"
	apperrors "github.com/rstenmark/fiscaldata/pkg/errors"
)

// DefaultTTL is how long a cached series stays live after retrieval.
const DefaultTTL = 24 * time.Hour

// Config carries explicit store options instead of package-level globals.
type Config struct {
	TTL time.Duration
}

// Store persists fetched auction series in the local SQLite cache table.
// Rows are immutable; expiry hides them from lookups without deleting them.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewStore constructs a Store on an open database handle.
func NewStore(db *gorm.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, errors.New("cache: nil database handle")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{db: db, ttl: ttl}, nil
}

// Initialize idempotently ensures the cache table exists.
func (s *Store) Initialize() error {
	return database.AutoMigrate(s.db)
}

// Insert serialises records for a term and stores them with retrieval and
// expiry timestamps. A payload whose content hash already exists is silently
// not re-inserted; the existing row wins.
func (s *Store) Insert(ctx context.Context, term auction.Term, records []auction.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := auction.EncodePayload(records)
	if err != nil {
		return apperrors.ErrPayloadCodec.WithInternal(err)
	}

	now := time.Now().UTC()
	entry := models.AuctionSeries{
		Term:        term.String(),
		RetrievedAt: now,
		ExpiresAt:   now.Add(s.ttl),
		Payload:     payload,
		ContentHash: auction.ContentHash(payload),
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoNothing: true,
		}).Create(&entry).Error
}

// Lookup returns the decoded records of an unexpired row for the term, or a
// miss when none exists. Among several unexpired rows the most recently
// retrieved one wins.
func (s *Store) Lookup(ctx context.Context, term auction.Term) ([]auction.Record, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var entry models.AuctionSeries
	err := s.db.WithContext(ctx).
		Where("term = ? AND expires >= ?", term.String(), time.Now().UTC()).
		Order("retrieved DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	records, err := auction.DecodePayload(entry.Payload)
	if err != nil {
		return nil, false, apperrors.ErrPayloadCodec.WithInternal(err)
	}

	return records, true, nil
}
