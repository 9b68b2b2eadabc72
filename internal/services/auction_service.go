package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rstenmark/fiscaldata/internal/auction"
	"github.com/rstenmark/fiscaldata/pkg/logger"
)

// Fetcher retrieves normalised auction history for one term.
type Fetcher interface {
	FetchAuctions(ctx context.Context, term auction.Term, securityType string, issuedSince time.Time) ([]auction.Record, error)
}

// SeriesCache is the subset of the cache store the service depends on.
type SeriesCache interface {
	Insert(ctx context.Context, term auction.Term, records []auction.Record) error
	Lookup(ctx context.Context, term auction.Term) ([]auction.Record, bool, error)
}

// AuctionService glues cache lookups, fetches, and write-through together.
// Terms are processed sequentially; any failure aborts the whole run with no
// per-term isolation.
type AuctionService struct {
	fetcher      Fetcher
	cache        SeriesCache // nil disables caching
	securityType string
	issuedSince  time.Time
	log          *zap.Logger
}

// NewAuctionService constructs the service. A nil cache disables caching and
// every request goes to the upstream API.
func NewAuctionService(fetcher Fetcher, cache SeriesCache, securityType string, issuedSince time.Time) (*AuctionService, error) {
	if fetcher == nil {
		return nil, errors.New("services: nil fetcher")
	}

	return &AuctionService{
		fetcher:      fetcher,
		cache:        cache,
		securityType: securityType,
		issuedSince:  issuedSince,
		log:          logger.WithComponent("auctions"),
	}, nil
}

// Series returns the auction history for one term, consulting the cache first
// and writing fresh fetches through to it.
func (s *AuctionService) Series(ctx context.Context, term auction.Term) ([]auction.Record, error) {
	if s.cache != nil {
		records, ok, err := s.cache.Lookup(ctx, term)
		if err != nil {
			return nil, err
		}
		if ok {
			s.log.Info("cache hit", zap.String("term", term.String()), zap.Int("records", len(records)))
			return records, nil
		}
	}

	records, err := s.fetcher.FetchAuctions(ctx, term, s.securityType, s.issuedSince)
	if err != nil {
		return nil, err
	}

	s.log.Info("fetched from upstream", zap.String("term", term.String()), zap.Int("records", len(records)))

	if s.cache != nil {
		if err := s.cache.Insert(ctx, term, records); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// AllSeries resolves every requested term in order. Requests are independent
// but issued sequentially.
func (s *AuctionService) AllSeries(ctx context.Context, terms []auction.Term) (map[auction.Term][]auction.Record, error) {
	series := make(map[auction.Term][]auction.Record, len(terms))
	for _, term := range terms {
		records, err := s.Series(ctx, term)
		if err != nil {
			return nil, err
		}
		series[term] = records
	}

	return series, nil
}
