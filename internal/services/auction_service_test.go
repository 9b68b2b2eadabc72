package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rstenmark/fiscaldata/internal/auction"
	"github.com/rstenmark/fiscaldata/internal/cache"
	"github.com/rstenmark/fiscaldata/internal/database/testutil"
	apperrors "github.com/rstenmark/fiscaldata/pkg/errors"
)

type fakeFetcher struct {
	calls   map[auction.Term]int
	series  map[auction.Term][]auction.Record
	failure error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:  map[auction.Term]int{},
		series: map[auction.Term][]auction.Record{},
	}
}

func (f *fakeFetcher) FetchAuctions(ctx context.Context, term auction.Term, securityType string, issuedSince time.Time) ([]auction.Record, error) {
	f.calls[term]++
	if f.failure != nil {
		return nil, f.failure
	}
	return f.series[term], nil
}

func seriesFor(term auction.Term) []auction.Record {
	return []auction.Record{{
		IssueDate:       time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC),
		CUSIP:           "912796J34",
		SecurityTerm:    term.String(),
		PricePer100:     99.99,
		BidToCoverRatio: 3.0,
	}}
}

func newTestService(t *testing.T, fetcher Fetcher, withCache bool) *AuctionService {
	t.Helper()

	var seriesCache SeriesCache
	if withCache {
		store, err := cache.NewStore(testutil.MustOpenTestDB(t), cache.Config{TTL: time.Hour})
		require.NoError(t, err)
		seriesCache = store
	}

	svc, err := NewAuctionService(fetcher, seriesCache, "Bill", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return svc
}

func TestSeriesFetchesOnMissAndWritesThrough(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.series[auction.TermFourWeek] = seriesFor(auction.TermFourWeek)
	svc := newTestService(t, fetcher, true)

	ctx := context.Background()

	first, err := svc.Series(ctx, auction.TermFourWeek)
	require.NoError(t, err)
	require.Equal(t, seriesFor(auction.TermFourWeek), first)
	require.Equal(t, 1, fetcher.calls[auction.TermFourWeek])

	// Second request is served from the cache without touching upstream.
	second, err := svc.Series(ctx, auction.TermFourWeek)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fetcher.calls[auction.TermFourWeek])
}

func TestSeriesWithoutCacheAlwaysFetches(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.series[auction.TermEightWeek] = seriesFor(auction.TermEightWeek)
	svc := newTestService(t, fetcher, false)

	ctx := context.Background()

	_, err := svc.Series(ctx, auction.TermEightWeek)
	require.NoError(t, err)
	_, err = svc.Series(ctx, auction.TermEightWeek)
	require.NoError(t, err)

	require.Equal(t, 2, fetcher.calls[auction.TermEightWeek])
}

func TestSeriesPropagatesFetchFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failure = apperrors.ErrTransport.WithInternal(context.DeadlineExceeded)
	svc := newTestService(t, fetcher, true)

	_, err := svc.Series(context.Background(), auction.TermFourWeek)
	require.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestAllSeriesResolvesEveryTermSequentially(t *testing.T) {
	fetcher := newFakeFetcher()
	for _, term := range auction.Terms() {
		fetcher.series[term] = seriesFor(term)
	}
	svc := newTestService(t, fetcher, true)

	series, err := svc.AllSeries(context.Background(), auction.Terms())
	require.NoError(t, err)
	require.Len(t, series, len(auction.Terms()))

	for _, term := range auction.Terms() {
		require.Equal(t, seriesFor(term), series[term])
		require.Equal(t, 1, fetcher.calls[term])
	}
}

func TestAllSeriesAbortsOnFirstFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failure = apperrors.ErrSchema
	svc := newTestService(t, fetcher, false)

	_, err := svc.AllSeries(context.Background(), auction.Terms())
	require.ErrorIs(t, err, apperrors.ErrSchema)
	// No per-term isolation: the first failure stops the run.
	total := 0
	for _, calls := range fetcher.calls {
		total += calls
	}
	require.Equal(t, 1, total)
}

func TestNewAuctionServiceRequiresFetcher(t *testing.T) {
	_, err := NewAuctionService(nil, nil, "Bill", time.Now())
	require.Error(t, err)
}
