package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rstenmark/fiscaldata/internal/auction"
	"github.com/rstenmark/fiscaldata/internal/database/testutil"
	"github.com/rstenmark/fiscaldata/internal/models"
	apperrors "github.com/rstenmark/fiscaldata/pkg/errors"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store, err := NewStore(db, Config{TTL: time.Hour})
	require.NoError(t, err)

	return store, db
}

func testRecords(term auction.Term) []auction.Record {
	return []auction.Record{
		{
			IssueDate:       time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC),
			CUSIP:           "912796J34",
			SecurityTerm:    term.String(),
			PricePer100:     99.994,
			BidToCoverRatio: 3.12,
		},
		{
			IssueDate:       time.Date(2022, 1, 11, 0, 0, 0, 0, time.UTC),
			CUSIP:           "912796K58",
			SecurityTerm:    term.String(),
			PricePer100:     99.991,
			BidToCoverRatio: 2.87,
		},
	}
}

func TestStoreInitializeIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Initialize())
	require.NoError(t, store.Initialize())
}

func TestStoreInsertThenLookupRoundTrips(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	records := testRecords(auction.TermFourWeek)

	require.NoError(t, store.Insert(ctx, auction.TermFourWeek, records))

	got, ok, err := store.Lookup(ctx, auction.TermFourWeek)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, records, got)
}

func TestStoreLookupMissesOtherTerms(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, auction.TermFourWeek, testRecords(auction.TermFourWeek)))

	_, ok, err := store.Lookup(ctx, auction.TermEightWeek)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreInsertDeduplicatesIdenticalPayloads(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	records := testRecords(auction.TermThirteenWeek)

	require.NoError(t, store.Insert(ctx, auction.TermThirteenWeek, records))
	require.NoError(t, store.Insert(ctx, auction.TermThirteenWeek, records))

	var count int64
	require.NoError(t, db.Model(&models.AuctionSeries{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestStoreInsertKeepsDistinctPayloads(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	first := testRecords(auction.TermFourWeek)
	second := testRecords(auction.TermFourWeek)
	second[0].PricePer100 = 99.5

	require.NoError(t, store.Insert(ctx, auction.TermFourWeek, first))
	require.NoError(t, store.Insert(ctx, auction.TermFourWeek, second))

	var count int64
	require.NoError(t, db.Model(&models.AuctionSeries{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestStoreLookupSkipsExpiredRows(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	payload, err := auction.EncodePayload(testRecords(auction.TermFiftyTwoWeek))
	require.NoError(t, err)

	expired := models.AuctionSeries{
		Term:        auction.TermFiftyTwoWeek.String(),
		RetrievedAt: time.Now().UTC().Add(-48 * time.Hour),
		ExpiresAt:   time.Now().UTC().Add(-24 * time.Hour),
		Payload:     payload,
		ContentHash: auction.ContentHash(payload),
	}
	require.NoError(t, db.Create(&expired).Error)

	_, ok, err := store.Lookup(ctx, auction.TermFiftyTwoWeek)
	require.NoError(t, err)
	require.False(t, ok)

	// The expired row stays in the table; only lookups ignore it.
	var count int64
	require.NoError(t, db.Model(&models.AuctionSeries{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestStoreLookupPrefersMostRecentlyRetrieved(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	older := testRecords(auction.TermTwentySixWeek)
	newer := testRecords(auction.TermTwentySixWeek)
	newer[0].PricePer100 = 99.2

	now := time.Now().UTC()
	for i, records := range [][]auction.Record{older, newer} {
		payload, err := auction.EncodePayload(records)
		require.NoError(t, err)

		entry := models.AuctionSeries{
			Term:        auction.TermTwentySixWeek.String(),
			RetrievedAt: now.Add(time.Duration(i) * time.Minute),
			ExpiresAt:   now.Add(time.Hour),
			Payload:     payload,
			ContentHash: auction.ContentHash(payload),
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	got, ok, err := store.Lookup(ctx, auction.TermTwentySixWeek)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newer, got)
}

func TestStoreLookupReportsCorruptPayload(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	entry := models.AuctionSeries{
		Term:        auction.TermFourWeek.String(),
		RetrievedAt: time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
		Payload:     []byte("not a payload"),
		ContentHash: auction.ContentHash([]byte("not a payload")),
	}
	require.NoError(t, db.Create(&entry).Error)

	_, _, err := store.Lookup(ctx, auction.TermFourWeek)
	require.ErrorIs(t, err, apperrors.ErrPayloadCodec)
}

func TestNewStoreRejectsNilHandle(t *testing.T) {
	_, err := NewStore(nil, Config{})
	require.Error(t, err)
}
